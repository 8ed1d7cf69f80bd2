// Package release orchestrates one press-release folder end to end: locate
// the three required inputs, extract the document content, normalize the
// image, render both HTML artifacts into the folder and report the upload
// manifest. Failures never surface as Go errors; they accumulate on the
// Result so callers can relay the messages verbatim.
package release

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ezwire/presskit/config"
	"github.com/ezwire/presskit/imgconv"
	"github.com/ezwire/presskit/prdoc"
	"github.com/ezwire/presskit/render"
)

// Files are the required inputs located inside a release folder. An empty
// field means the folder has no usable file of that kind.
type Files struct {
	Docx string
	PNG  string
	PDF  string
}

// Templates holds the two HTML templates a run renders with.
type Templates struct {
	Web   string
	Email string
}

// LoadTemplates returns the embedded defaults, replaced per file by
// web.html / email.html overrides found in dir.
func LoadTemplates(dir string) Templates {
	t := Templates{Web: render.DefaultWebTemplate, Email: render.DefaultEmailTemplate}
	if dir == "" {
		return t
	}
	if b, err := os.ReadFile(filepath.Join(dir, "web.html")); err == nil {
		t.Web = string(b)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "email.html")); err == nil {
		t.Email = string(b)
	}
	return t
}

// Upload pairs a local artifact with the name it gets on the web server.
type Upload struct {
	LocalPath  string `json:"local_path"`
	RemoteName string `json:"remote_filename"`
}

// Result reports one processing run.
type Result struct {
	Success     bool              `json:"success"`
	FolderName  string            `json:"folder_name"`
	MonthFolder string            `json:"month_folder"`
	Uploads     []Upload          `json:"files_to_upload"`
	PreviewURLs map[string]string `json:"preview_urls"`
	Errors      []string          `json:"errors"`
	PDFPages    int               `json:"pdf_pages,omitempty"`
}

// FindFiles scans the folder, non-recursively and files only, for the
// release inputs. Names are compared lowercased:
//
//   - docx: first .docx whose name lacks "instruction"; a later name
//     containing "publicrelations" replaces an earlier pick
//   - png: the last .png in directory order
//   - pdf: like docx, additionally skipping names containing "order"
//
// os.ReadDir sorts entries by name, so ties resolve the same way on every
// platform.
func FindFiles(folder string) (Files, error) {
	var files Files
	entries, err := os.ReadDir(folder)
	if err != nil {
		return files, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		path := filepath.Join(folder, e.Name())
		switch {
		case strings.HasSuffix(lower, ".docx") && !strings.Contains(lower, "instruction"):
			if files.Docx == "" || strings.Contains(lower, "publicrelations") {
				files.Docx = path
			}
		case strings.HasSuffix(lower, ".png"):
			files.PNG = path
		case strings.HasSuffix(lower, ".pdf") && !strings.Contains(lower, "instruction") && !strings.Contains(lower, "order"):
			if files.PDF == "" || strings.Contains(lower, "publicrelations") {
				files.PDF = path
			}
		}
	}
	return files, nil
}

// Processor runs the folder pipeline with one site configuration.
type Processor struct {
	renderer *render.Renderer
	width    int
	quality  int
	logger   *slog.Logger
}

// NewProcessor builds a Processor from the service configuration.
func NewProcessor(cfg *config.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		renderer: render.New(cfg.Publish.BaseURLTemplate, cfg.Contacts),
		width:    cfg.Image.Width,
		quality:  cfg.Image.Quality,
		logger:   logger,
	}
}

// Process runs the whole pipeline for one local folder. The rendered web
// page, email version and converted JPEG are written into the folder
// itself; nothing is written unless all three inputs are present.
func (p *Processor) Process(folder string, tmpl Templates, opts render.Options) *Result {
	res := &Result{
		Errors:      []string{},
		PreviewURLs: map[string]string{},
	}

	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		res.Errors = append(res.Errors, fmt.Sprintf("Folder not found: %s", folder))
		return res
	}

	folderName := filepath.Base(folder)
	res.FolderName = folderName
	p.logger.Info("processing release folder", "folder", folderName)

	files, err := FindFiles(folder)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Folder not found: %s", folder))
		return res
	}

	var missing []string
	if files.Docx == "" {
		missing = append(missing, "Word document (.docx)")
	}
	if files.PNG == "" {
		missing = append(missing, "PNG image (.png)")
	}
	if files.PDF == "" {
		missing = append(missing, "PDF file (.pdf)")
	}
	if len(missing) > 0 {
		res.Errors = append(res.Errors, "Missing files: "+strings.Join(missing, ", "))
		return res
	}

	// Advisory only: a PDF that pdfcpu cannot read still ships, since the
	// server just serves it as a download.
	if pages, err := pdfPageCount(files.PDF); err != nil {
		p.logger.Warn("pdf inspection failed", "path", files.PDF, "error", err)
	} else {
		res.PDFPages = pages
	}

	doc, err := prdoc.Open(files.Docx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to parse Word document: %v", err))
		return res
	}
	content := prdoc.Extract(doc)

	pngBase := strings.TrimSuffix(filepath.Base(files.PNG), filepath.Ext(files.PNG))
	jpgPath := filepath.Join(folder, pngBase+".jpg")

	img := imgconv.Normalize(files.PNG, jpgPath, p.width, p.quality)
	if !img.OK {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to process image: %s", img.Err))
		return res
	}

	jpgName := filepath.Base(jpgPath)
	pngName := filepath.Base(files.PNG)
	pdfName := filepath.Base(files.PDF)
	htmlName := folderName + ".html"
	emailName := folderName + "_email.html"

	assets := render.Assets{JPG: jpgName, PNG: pngName, PDF: pdfName}
	dims := render.Dims{Width: img.Width, Height: img.Height}

	htmlPath := filepath.Join(folder, htmlName)
	emailPath := filepath.Join(folder, emailName)

	web := p.renderer.WebHTML(tmpl.Web, content, folderName, assets, dims, opts)
	if err := os.WriteFile(htmlPath, []byte(web), 0o644); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to generate HTML: %v", err))
		return res
	}
	email := p.renderer.EmailHTML(tmpl.Email, content, folderName, assets, dims, opts)
	if err := os.WriteFile(emailPath, []byte(email), 0o644); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to generate HTML: %v", err))
		return res
	}

	res.Uploads = []Upload{
		{LocalPath: htmlPath, RemoteName: htmlName},
		{LocalPath: emailPath, RemoteName: emailName},
		{LocalPath: jpgPath, RemoteName: jpgName},
		{LocalPath: files.PNG, RemoteName: pngName},
		{LocalPath: files.PDF, RemoteName: pdfName},
	}

	res.MonthFolder = render.MonthFolder(content.Date)
	base := p.renderer.BaseURL(res.MonthFolder, folderName)
	res.PreviewURLs["html"] = base + htmlName
	res.PreviewURLs["email"] = base + emailName

	res.Success = true
	p.logger.Info("release folder processed",
		"folder", folderName, "month_folder", res.MonthFolder, "uploads", len(res.Uploads))
	return res
}

func pdfPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
