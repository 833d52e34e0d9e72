package convert

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docgen/docx"
	"docgen/utils/images"
)

// pendingImage is image paragraph waiting for its data.
type pendingImage struct {
	para    *docx.Paragraph
	section Section
}

type imageResult struct {
	img *images.Image
	err error
}

// collectPending lists image paragraphs of the document in media order:
// header, body, footer.
func collectPending(doc *docx.Document) []pendingImage {
	var out []pendingImage
	for i, s := range doc.Sections() {
		for _, p := range docx.Images(s.Blocks) {
			if p.Image.Pending() {
				out = append(out, pendingImage{para: p, section: Section(i)})
			}
		}
	}
	return out
}

// resolveImages fetches and normalizes pending images with at most workers
// running at once. Every result goes into its own slot, order of completion
// does not matter. Failure of a single image is not an error, only context
// cancellation is.
func resolveImages(ctx context.Context, pending []pendingImage, r *images.Resolver, rasterizeSVG bool, workers int) ([]imageResult, error) {
	results := make([]imageResult, len(pending))
	if len(pending) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, p := range pending {
		g.Go(func() error {
			data, err := r.Resolve(gctx, p.para.Image.Source)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].img, results[i].err = images.Normalize(data, images.NormalizeOptions{
				RasterizeSVG:  rasterizeSVG,
				DisplayWidth:  p.para.Image.Width,
				DisplayHeight: p.para.Image.Height,
			})
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyImages stores resolved data into pending paragraphs, failed ones are
// removed from the document. Table cells losing their only paragraph get an
// empty one.
func applyImages(doc *docx.Document, pending []pendingImage, results []imageResult, warn *warnings, log *zap.Logger) {
	failed := make(map[*docx.Paragraph]bool)
	for i, p := range pending {
		res := results[i]
		if res.err != nil {
			failed[p.para] = true
			switch {
			case errors.Is(res.err, images.ErrNoSource):
				log.Debug("Dropping image without source", zap.Stringer("section", p.section))
			case errors.Is(res.err, images.ErrUnsupported):
				warn.add(WarnImageUnsupported, p.section, excerpt(p.para.Image.Source)+": "+res.err.Error())
			default:
				warn.add(WarnImageFailed, p.section, excerpt(p.para.Image.Source)+": "+res.err.Error())
			}
			continue
		}
		img := p.para.Image
		img.Data, img.Format = res.img.Data, res.img.Format
		img.Width, img.Height = fitBox(res.img.Width, res.img.Height, img.Width, img.Height)
	}
	if len(failed) == 0 {
		return
	}
	doc.Header = dropParagraphs(doc.Header, failed)
	doc.Body = dropParagraphs(doc.Body, failed)
	doc.Footer = dropParagraphs(doc.Footer, failed)
}

func dropParagraphs(blocks []docx.Block, drop map[*docx.Paragraph]bool) []docx.Block {
	out := blocks[:0]
	for _, b := range blocks {
		switch v := b.(type) {
		case *docx.Paragraph:
			if drop[v] {
				continue
			}
		case *docx.Table:
			for _, r := range v.Rows {
				for _, c := range r.Cells {
					kept := c.Blocks[:0]
					for _, p := range c.Blocks {
						if !drop[p] {
							kept = append(kept, p)
						}
					}
					c.Blocks = kept
					c.EnsureContent()
				}
			}
		}
		out = append(out, b)
	}
	return out
}

// fitBox scales intrinsic size to fit into display box keeping aspect ratio,
// as "object-fit: contain" does.
func fitBox(w, h, boxW, boxH int) (int, int) {
	if w <= 0 || h <= 0 || boxW <= 0 || boxH <= 0 {
		return max(boxW, 1), max(boxH, 1)
	}
	scale := math.Min(float64(boxW)/float64(w), float64(boxH)/float64(h))
	return max(int(math.Round(float64(w)*scale)), 1), max(int(math.Round(float64(h)*scale)), 1)
}
