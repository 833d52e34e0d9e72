package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	fixzip "github.com/hidez8891/zip"
)

// PackOptions controls package writing.
type PackOptions struct {
	// FixZip rewrites archive without data descriptors, some strict
	// readers refuse them.
	FixZip bool
	// Created is written to core properties when set. Zero value keeps
	// output independent of the clock.
	Created time.Time
}

// zipEpoch is modification time of every archive entry.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// identifierSpace is namespace for document identifiers derived from content.
var identifierSpace = uuid.MustParse("9a3f6e32-4c0b-5d7e-8f21-6b1c2d3e4f50")

type mediaFile struct {
	name        string
	ext         string
	contentType string
	data        []byte
}

type packer struct {
	doc     *Document
	media   []mediaFile
	fonts   map[string]bool
	drawing int
}

func (p *packer) addMedia(img *Image) string {
	name := "image" + strconv.Itoa(len(p.media)+1) + "." + img.Ext()
	p.media = append(p.media, mediaFile{
		name:        name,
		ext:         img.Ext(),
		contentType: "image/" + img.Format,
		data:        img.Data,
	})
	return name
}

func (p *packer) nextDrawingID() int {
	p.drawing++
	return p.drawing
}

func (p *packer) useFont(name string) {
	p.fonts[name] = true
}

// Bytes packs document into memory.
func (d *Document) Bytes(opts PackOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Pack(&buf, d, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pack writes document as WordprocessingML package. Output depends only on
// the document and options.
func Pack(w io.Writer, doc *Document, opts PackOptions) error {
	if doc == nil {
		return errors.New("nil document")
	}
	if doc.Page.Width <= 0 || doc.Page.Height <= 0 {
		return fmt.Errorf("bad page size %dx%d", doc.Page.Width, doc.Page.Height)
	}

	p := &packer{doc: doc, fonts: make(map[string]bool)}
	if doc.DefaultFont != "" {
		p.useFont(doc.DefaultFont)
	}

	parts, err := p.buildParts(opts)
	if err != nil {
		return err
	}

	if !opts.FixZip {
		return writeArchive(w, parts, p.media)
	}
	var buf bytes.Buffer
	if err := writeArchive(&buf, parts, p.media); err != nil {
		return err
	}
	return copyZipWithoutDataDescriptors(buf.Bytes(), w)
}

type part struct {
	name string
	xml  *etree.Document // serialized into data when set
	data []byte
}

// buildParts serializes every XML part in archive order. Block parts go
// first, they collect media and fonts the other parts list.
func (p *packer) buildParts(opts PackOptions) ([]part, error) {
	headerRels, footerRels, docRels := &relationships{}, &relationships{}, &relationships{}

	header, err := p.blockPart("w:hdr", p.doc.Header, headerRels, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build header: %w", err)
	}

	docRels.add(relStyles, "styles.xml")
	docRels.add(relSettings, "settings.xml")
	docRels.add(relFontTable, "fontTable.xml")
	headerID := docRels.add(relHeader, "header1.xml")
	footerID := docRels.add(relFooter, "footer1.xml")

	document, err := p.blockPart("w:document", p.doc.Body, docRels, func(body *etree.Element) {
		sectionProperties(body, p.doc.Page, headerID, footerID)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to build body: %w", err)
	}

	footer, err := p.blockPart("w:ftr", p.doc.Footer, footerRels, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build footer: %w", err)
	}

	fonts := make([]string, 0, len(p.fonts))
	for f := range p.fonts {
		fonts = append(fonts, f)
	}
	slices.Sort(fonts)

	rootRels := &relationships{}
	rootRels.add(relOfficeDocument, "word/document.xml")
	rootRels.add(relCoreProps, "docProps/core.xml")
	rootRels.add(relExtendedProps, "docProps/app.xml")

	id := uuid.NewSHA1(identifierSpace, document)

	overrides := [][2]string{
		{"word/document.xml", ctDocument},
		{"word/styles.xml", ctStyles},
		{"word/settings.xml", ctSettings},
		{"word/fontTable.xml", ctFontTable},
		{"word/header1.xml", ctHeader},
		{"word/footer1.xml", ctFooter},
		{"docProps/core.xml", ctCore},
		{"docProps/app.xml", ctApp},
	}

	parts := []part{
		{name: "[Content_Types].xml", xml: contentTypesPart(overrides, p.media)},
		{name: "_rels/.rels", xml: rootRels.document()},
		{name: "docProps/core.xml", xml: corePart(&p.doc.Properties, id, opts.Created)},
		{name: "docProps/app.xml", xml: appPart(&p.doc.Properties)},
		{name: "word/document.xml", data: document},
		{name: "word/styles.xml", xml: stylesPart(p.doc)},
		{name: "word/settings.xml", xml: settingsPart()},
		{name: "word/fontTable.xml", xml: fontTablePart(fonts)},
		{name: "word/header1.xml", data: header},
		{name: "word/footer1.xml", data: footer},
		{name: "word/_rels/document.xml.rels", xml: docRels.document()},
		{name: "word/_rels/header1.xml.rels", xml: headerRels.document()},
		{name: "word/_rels/footer1.xml.rels", xml: footerRels.document()},
	}
	for i := range parts {
		if parts[i].xml == nil {
			continue
		}
		data, err := serialize(parts[i].xml)
		if err != nil {
			return nil, fmt.Errorf("unable to serialize %s: %w", parts[i].name, err)
		}
		parts[i].data = data
	}
	return parts, nil
}

// blockPart serializes header, body or footer. Header and footer without
// blocks get a single empty paragraph, Word refuses empty ones.
func (p *packer) blockPart(tag string, blocks []Block, rels *relationships, finish func(*etree.Element)) ([]byte, error) {
	x := newXMLDocument()
	root := wordRoot(x, tag)
	parent := root
	if tag == "w:document" {
		parent = root.CreateElement("w:body")
	}

	bw := &blockWriter{p: p, rels: rels}
	if err := bw.blocks(parent, blocks); err != nil {
		return nil, err
	}
	if tag != "w:document" && len(blocks) == 0 {
		parent.CreateElement("w:p")
	}
	if finish != nil {
		finish(parent)
	}
	return serialize(x)
}

func serialize(doc *etree.Document) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeArchive(w io.Writer, parts []part, media []mediaFile) error {
	zw := zip.NewWriter(w)
	for _, pt := range parts {
		if err := writeDataToZip(zw, pt.name, pt.data); err != nil {
			return fmt.Errorf("unable to write %s: %w", pt.name, err)
		}
	}
	for _, m := range media {
		if err := writeDataToZip(zw, "word/media/"+m.name, m.data); err != nil {
			return fmt.Errorf("unable to write media %s: %w", m.name, err)
		}
	}
	return zw.Close()
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// copyZipWithoutDataDescriptors rewrites archive clearing data descriptor
// flag of every entry.
func copyZipWithoutDataDescriptors(data []byte, to io.Writer) error {
	r, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("unable to read archive: %w", err)
	}

	w := fixzip.NewWriter(to)
	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write archive entry %s: %w", file.Name, err)
		}
	}
	return w.Close()
}
