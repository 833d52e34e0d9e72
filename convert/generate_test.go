package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"docgen/config"
	"docgen/docx"
	"docgen/variables"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{200, 30, 30, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// imageServer serves /logo.png (40x20), /text.png (not an image) and
// /sized/N.png (N*10 x 10, slower for smaller N).
func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	logo := pngOf(t, 40, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.URL.Path == "/logo.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(logo)
		case req.URL.Path == "/text.png":
			_, _ = w.Write([]byte("this is not an image"))
		case strings.HasPrefix(req.URL.Path, "/sized/"):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, "/sized/"), ".png"))
			if err != nil || n <= 0 {
				http.NotFound(w, req)
				return
			}
			time.Sleep(time.Duration(10-n) * 5 * time.Millisecond)
			_, _ = w.Write(pngOf(t, n*10, 10))
		default:
			http.NotFound(w, req)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testDocumentConfig(t *testing.T) *config.DocumentConfig {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &cfg.Document
}

func testOptions(t *testing.T, client *http.Client) Options {
	return Options{Document: testDocumentConfig(t), Client: client, Log: zaptest.NewLogger(t)}
}

func partNames(t *testing.T, data []byte) map[string]bool {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("result is not an archive: %v", err)
	}
	names := make(map[string]bool, len(r.File))
	for _, f := range r.File {
		names[f.Name] = true
	}
	return names
}

func findWarning(ws []Warning, kind WarningKind, section Section) (Warning, bool) {
	for _, w := range ws {
		if w.Kind == kind && w.Section == section {
			return w, true
		}
	}
	return Warning{}, false
}

const logoHeader = `<table style="width: 100%; border: 0"><tr>
<td style="width: 70%">{ecole_nom}</td>
<td style="width: 30%; text-align: right">{ecole_logo}</td>
</tr></table>`

func TestGenerate_Logo(t *testing.T) {
	srv := imageServer(t)
	tpl := Template{
		Title:  "Convocation",
		Header: logoHeader,
		Body:   "<h1>Convocation</h1><p>Bonjour {nom}</p>",
		Footer: "<p>{ecole_nom}</p>",
	}
	vars := variables.Variables{
		"ecole_nom":  variables.Text("École Exemple"),
		"ecole_logo": variables.URL(srv.URL + "/logo.png"),
		"nom":        variables.Text("Dupont"),
	}

	res, err := Generate(context.Background(), tpl, vars, testOptions(t, srv.Client()))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}

	if len(res.Document.Header) != 1 {
		t.Fatalf("header blocks = %d, want 1", len(res.Document.Header))
	}
	tbl, ok := res.Document.Header[0].(*docx.Table)
	if !ok || !tbl.LayoutTable {
		t.Fatalf("header block = %T, want layout table", res.Document.Header[0])
	}
	logoCell := tbl.Rows[0].Cells[1]
	img := logoCell.Blocks[0].Image
	if img == nil || img.Pending() || img.Format != "png" {
		t.Fatalf("logo = %+v", img)
	}
	if img.Width != 110 || img.Height != 55 {
		t.Errorf("logo size = %dx%d, want 110x55", img.Width, img.Height)
	}
	if logoCell.Blocks[0].Alignment != docx.AlignRight {
		t.Errorf("logo alignment = %v", logoCell.Blocks[0].Alignment)
	}

	if len(res.Document.Body) != 2 {
		t.Fatalf("body blocks = %d, want 2", len(res.Document.Body))
	}
	if got := res.Document.Body[1].(*docx.Paragraph).Text(); got != "Bonjour Dupont" {
		t.Errorf("body text = %q", got)
	}
	footer := res.Document.Footer[0].(*docx.Paragraph)
	if footer.Runs[0].SizeHalfPoints > 16 {
		t.Errorf("footer size = %d, want at most 16", footer.Runs[0].SizeHalfPoints)
	}

	names := partNames(t, res.Data)
	for _, name := range []string{"word/document.xml", "word/header1.xml", "word/footer1.xml", "word/media/image1.png"} {
		if !names[name] {
			t.Errorf("package has no %s", name)
		}
	}
	if res.Document.Properties.Title != "Convocation" || res.Document.Properties.Language != "fr-FR" {
		t.Errorf("properties = %+v", res.Document.Properties)
	}
}

func TestGenerate_LogoInAttribute(t *testing.T) {
	srv := imageServer(t)
	tpl := Template{
		Header: `<table><tr><td><img src="{logo}"/></td><td>{org_name}</td></tr></table>`,
		Body:   "<p>{nom}</p>",
	}
	vars := variables.Variables{
		"logo":     variables.URL(srv.URL + "/logo.png"),
		"org_name": variables.Text("ACME"),
		"nom":      variables.Text("Dupont"),
	}

	res, err := Generate(context.Background(), tpl, vars, testOptions(t, srv.Client()))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
	imgs := docx.Images(res.Document.Header)
	if len(imgs) != 1 || imgs[0].Image.Pending() {
		t.Fatalf("header images = %d, want one resolved", len(imgs))
	}
	if !partNames(t, res.Data)["word/media/image1.png"] {
		t.Error("package has no word/media/image1.png")
	}
}

func TestGenerate_Unresolved(t *testing.T) {
	res, err := Generate(context.Background(), Template{Body: "<p>{missing}</p>"}, nil, testOptions(t, nil))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Document.Body) != 0 {
		t.Errorf("body blocks = %d, want 0", len(res.Document.Body))
	}
	w, ok := findWarning(res.Warnings, WarnUnresolvedPlaceholder, SectionBody)
	if !ok || w.Detail != "missing" {
		t.Errorf("warnings = %v, want unresolved missing", res.Warnings)
	}
	if !partNames(t, res.Data)["word/document.xml"] {
		t.Error("package has no body part")
	}
}

func TestGenerate_ImageFailures(t *testing.T) {
	srv := imageServer(t)
	tpl := Template{Header: logoHeader, Body: fmt.Sprintf(`<p>Texte</p><img src="%s/text.png">`, srv.URL)}
	vars := variables.Variables{
		"ecole_nom":  variables.Text("École"),
		"ecole_logo": variables.URL(srv.URL + "/missing.png"),
	}

	res, err := Generate(context.Background(), tpl, vars, testOptions(t, srv.Client()))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, ok := findWarning(res.Warnings, WarnImageFailed, SectionHeader); !ok {
		t.Errorf("warnings = %v, want image-failed in header", res.Warnings)
	}
	if _, ok := findWarning(res.Warnings, WarnImageUnsupported, SectionBody); !ok {
		t.Errorf("warnings = %v, want image-unsupported in body", res.Warnings)
	}

	cell := res.Document.Header[0].(*docx.Table).Rows[0].Cells[1]
	if len(cell.Blocks) != 1 || cell.Blocks[0].Image != nil || len(cell.Blocks[0].Runs) != 0 {
		t.Errorf("failed logo cell should hold single empty paragraph, got %+v", cell.Blocks)
	}
	if len(res.Document.Body) != 1 || res.Document.Body[0].(*docx.Paragraph).Text() != "Texte" {
		t.Errorf("body = %+v", res.Document.Body)
	}
	if partNames(t, res.Data)["word/media/image1.png"] {
		t.Error("failed images must not be packed")
	}
}

func TestGenerate_LogoWithoutURL(t *testing.T) {
	vars := variables.Variables{"ecole_logo": variables.Text("pas de logo"), "ecole_nom": variables.Text("École")}
	res, err := Generate(context.Background(), Template{Header: logoHeader}, vars, testOptions(t, nil))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	w, ok := findWarning(res.Warnings, WarnUnresolvedPlaceholder, SectionHeader)
	if !ok || w.Detail != "ecole_logo" {
		t.Errorf("warnings = %v, want unresolved ecole_logo", res.Warnings)
	}
	if _, ok := findWarning(res.Warnings, WarnImageFailed, SectionHeader); ok {
		t.Error("text logo should not produce image at all")
	}
}

func TestGenerate_ImageOrder(t *testing.T) {
	srv := imageServer(t)
	var body strings.Builder
	for n := 1; n <= 6; n++ {
		fmt.Fprintf(&body, `<img src="%s/sized/%d.png" width="1000" height="10">`, srv.URL, n)
	}

	opts := testOptions(t, srv.Client())
	opts.Document.Images.Workers = 3
	res, err := Generate(context.Background(), Template{Body: body.String()}, nil, opts)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Document.Body) != 6 {
		t.Fatalf("body blocks = %d, want 6", len(res.Document.Body))
	}
	for i, b := range res.Document.Body {
		img := b.(*docx.Paragraph).Image
		if img == nil || img.Width != (i+1)*10 || img.Height != 10 {
			t.Errorf("image %d = %+v, want %dx10", i, img, (i+1)*10)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	srv := imageServer(t)
	tpl := Template{Type: "convocation"}
	vars := variables.Variables{
		"ecole_nom":  variables.Text("École"),
		"ecole_logo": variables.URL(srv.URL + "/logo.png"),
		"eleve_nom":  variables.Text("Martin"),
	}

	first, err := Generate(context.Background(), tpl, vars, testOptions(t, srv.Client()))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := Generate(context.Background(), tpl, vars, testOptions(t, srv.Client()))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Error("Generate() output differs between runs")
	}
	if first.Document.Properties.Title != "Convocation" {
		t.Errorf("title = %q", first.Document.Properties.Title)
	}
	if len(first.Document.Header) == 0 || len(first.Document.Footer) == 0 {
		t.Error("default header and footer should be used for typed template")
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, Template{Body: "<p>x</p>"}, nil, testOptions(t, nil))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestGenerate_CancelledDuringImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Generate(ctx, Template{Body: `<img src="` + srv.URL + `/slow.png">`}, nil, testOptions(t, srv.Client()))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Generate() error = %v, want deadline exceeded", err)
	}
}

func TestGenerate_InvalidTemplate(t *testing.T) {
	for name, tpl := range map[string]Template{
		"unknown type": {Type: "facture"},
		"font size":    {Body: "<p>x</p>", FontSize: 500},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(context.Background(), tpl, nil, testOptions(t, nil))
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Generate() error = %v, want ErrInvalidTemplate", err)
			}
		})
	}
}

func TestGenerate_Defaults(t *testing.T) {
	tpl := Template{
		Body:     "<p>x</p>",
		FontSize: 12,
		Margins:  &config.MarginsConfig{Top: 10, Right: 10, Bottom: 10, Left: 25.4},
	}
	res, err := Generate(context.Background(), tpl, nil, Options{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	doc := res.Document
	if doc.DefaultSize != 24 {
		t.Errorf("default size = %d, want 24", doc.DefaultSize)
	}
	if doc.Page.Width != 11906 || doc.Page.Height != 16838 {
		t.Errorf("page = %dx%d, want A4", doc.Page.Width, doc.Page.Height)
	}
	if doc.Page.Margins.Top != 566 || doc.Page.Margins.Left != 1440 {
		t.Errorf("margins = %+v", doc.Page.Margins)
	}
	if doc.DefaultFont != "Times New Roman" {
		t.Errorf("default font = %q", doc.DefaultFont)
	}
}

func TestGenerate_Created(t *testing.T) {
	opts := testOptions(t, nil)
	opts.Created = time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	res, err := Generate(context.Background(), Template{Body: "<p>x</p>"}, nil, opts)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	r, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	for _, f := range r.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(rc)
		rc.Close()
		if !strings.Contains(buf.String(), "2025-03-04T10:30:00Z") {
			t.Errorf("core properties do not carry creation time: %s", buf.String())
		}
		return
	}
	t.Error("package has no core properties")
}
