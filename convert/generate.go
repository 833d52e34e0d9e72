package convert

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"docgen/config"
	"docgen/docx"
	"docgen/utils/images"
	"docgen/variables"
)

// Options are generation settings which do not belong to the template.
type Options struct {
	// Document settings, nil means built-in configuration defaults.
	Document *config.DocumentConfig
	// Client is used to fetch images, nil means http.DefaultClient.
	Client *http.Client
	// Created is written to document properties, zero keeps output
	// independent of the clock.
	Created time.Time
	Log     *zap.Logger
}

// Result is generated document.
type Result struct {
	Data     []byte
	Warnings []Warning
	// Document is the assembled model Data was packed from.
	Document *docx.Document
}

const fallbackFontSize = 10

// Generate substitutes variables into template markup, assembles header,
// body and footer, resolves images and packs DOCX. Problems with separate
// elements (styles, images, tables) never fail generation, they are returned
// as warnings. Errors are returned for invalid templates, cancelled context
// and packaging failures.
func Generate(ctx context.Context, tpl Template, vars variables.Variables, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("generate")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := opts.Document
	if cfg == nil {
		full, err := config.LoadConfiguration("")
		if err != nil {
			return nil, fmt.Errorf("unable to load default configuration: %w", err)
		}
		cfg = &full.Document
	}

	if err := tpl.validate(); err != nil {
		return nil, err
	}
	tpl, err := tpl.withDefaults()
	if err != nil {
		return nil, err
	}

	base := cmp.Or(tpl.FontSize, cfg.DefaultFontSize, fallbackFontSize)
	margins := cfg.Margins
	if tpl.Margins != nil {
		margins = *tpl.Margins
	}
	width, height := cfg.PageSize.Twips()

	doc := &docx.Document{
		Page: docx.Page{
			Width:  width,
			Height: height,
			Margins: docx.Margins{
				Top:    docx.MMToTwips(margins.Top),
				Right:  docx.MMToTwips(margins.Right),
				Bottom: docx.MMToTwips(margins.Bottom),
				Left:   docx.MMToTwips(margins.Left),
			},
		},
		DefaultFont: cfg.DefaultFont,
		DefaultSize: halfPoints(base),
		Properties: docx.Properties{
			Title:   tpl.Title,
			Creator: cfg.Creator,
		},
	}
	tag, err := cfg.LanguageTag()
	if err != nil {
		return nil, err
	}
	if tag != language.Und {
		doc.Properties.Language = tag.String()
	}

	warn := newWarnings(log)
	sections := []struct {
		section Section
		markup  string
		blocks  *[]docx.Block
	}{
		{SectionHeader, tpl.Header, &doc.Header},
		{SectionBody, tpl.Body, &doc.Body},
		{SectionFooter, tpl.Footer, &doc.Footer},
	}
	for _, s := range sections {
		text, unresolved := variables.Substitute(s.markup, vars)
		for _, name := range unresolved {
			warn.add(WarnUnresolvedPlaceholder, s.section, name)
		}
		a := &assembler{section: s.section, base: base, font: cfg.DefaultFont, warn: warn}
		*s.blocks = a.assemble(text)
	}

	pending := collectPending(doc)
	if len(pending) > 0 {
		resolver := &images.Resolver{
			Client:    opts.Client,
			UserAgent: cfg.Images.UserAgent,
			MaxSize:   cfg.Images.MaxSize,
			Timeout:   cfg.Images.Timeout,
			Log:       log,
		}
		start := time.Now()
		results, err := resolveImages(ctx, pending, resolver, cfg.Images.RasterizeSVG, cfg.Images.Workers)
		if err != nil {
			return nil, err
		}
		log.Debug("Images resolved", zap.Int("count", len(pending)), zap.Duration("elapsed", time.Since(start)))
		applyImages(doc, pending, results, warn, log)
	}

	data, err := doc.Bytes(docx.PackOptions{FixZip: cfg.FixZip, Created: opts.Created})
	if err != nil {
		return nil, fmt.Errorf("unable to pack document: %w", err)
	}

	return &Result{Data: data, Warnings: warn.sorted(), Document: doc}, nil
}
