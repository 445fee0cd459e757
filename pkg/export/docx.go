package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/constants"
	"github.com/gomutex/godocx/common/units"
	"github.com/gomutex/godocx/dml"
	"github.com/gomutex/godocx/dml/dmlct"
	"github.com/gomutex/godocx/dml/dmlpic"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
	"github.com/rs/zerolog"
)

const (
	DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// DefaultImageWidth is the width, in pixels, pictures are scaled to.
	DefaultImageWidth = 600

	emuPerPixel = 9525

	// decimalList selects the "1." list scheme shipped with the template.
	decimalList = 1

	footerPart        = "footer1.xml"
	footerContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	footerRelation    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
)

// Document is a rendered report ready for download or mailing.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Renderer interface {
	Render(ctx context.Context, r *domain.Report) (*Document, error)
}

// DOCXRenderer writes the report title, a creation line and one numbered
// heading per complaint followed by its notes, transcripts and pictures.
// Every page carries its number in the footer.
type DOCXRenderer struct {
	CreatedAtLabel string
	ImageWidth     int
}

func NewDOCXRenderer() *DOCXRenderer {
	return &DOCXRenderer{
		CreatedAtLabel: "Created at",
		ImageWidth:     DefaultImageWidth,
	}
}

func (rd *DOCXRenderer) Render(ctx context.Context, r *domain.Report) (*Document, error) {
	width := rd.ImageWidth
	if width <= 0 {
		width = DefaultImageWidth
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("render report %s: %w", r.ID, err)
	}

	if _, err := doc.AddHeading(r.Name, 0); err != nil {
		return nil, fmt.Errorf("render report %s: %w", r.ID, err)
	}
	doc.AddParagraph(fmt.Sprintf("%s: %s", rd.CreatedAtLabel, r.CreatedAt.Local().Format("2006-01-02 15:04")))

	list := doc.NewListInstance(decimalList)
	for _, c := range r.Complaints {
		h, err := doc.AddHeading(c.Title, 1)
		if err != nil {
			return nil, fmt.Errorf("render complaint %s: %w", c.ID, err)
		}
		h.Numbering(list, 0)
		h.GetCT().Property.KeepNext = ctypes.OnOffFromBool(true)
		h.GetCT().Property.KeepLines = ctypes.OnOffFromBool(true)

		for _, it := range c.Items {
			switch it.Kind {
			case domain.ItemKindText, domain.ItemKindRecording:
				if it.Text != "" {
					doc.AddParagraph(it.Text).Spacing(0, 120)
				}
			case domain.ItemKindImage:
				if err := addPicture(doc, it.Image, width); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("item", it.ID).Msg("skipping picture in export")
				}
			}
		}
	}

	if err := addPageNumberFooter(doc); err != nil {
		return nil, fmt.Errorf("render report %s: %w", r.ID, err)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("render report %s: %w", r.ID, err)
	}
	return &Document{
		Filename:    SanitizeFilename(r.Name) + ".docx",
		ContentType: DOCXContentType,
		Data:        buf.Bytes(),
	}, nil
}

// addPicture embeds img as a centered inline picture scaled to width pixels.
func addPicture(doc *docx.RootDoc, img *domain.Blob, width int) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("%w: image", domain.ErrMissingPayload)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("decode picture: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("picture has no size")
	}
	mime, err := docx.MIMEFromExt(format)
	if err != nil {
		return err
	}

	doc.ImageCount++
	n := doc.ImageCount
	name := fmt.Sprintf("image%d.%s", n, format)
	doc.FileMap.Store(constants.MediaPath+name, img.Data)
	if !hasExtension(doc, format) {
		_ = doc.ContentType.AddExtension(format, mime)
	}
	_ = doc.ContentType.AddOverride("/"+constants.MediaPath+name, mime)
	relID := addRelation(doc, constants.SourceRelationshipImage, "media/"+name)

	w, h := ScaleToWidth(cfg.Width, cfg.Height, width)
	cx, cy := units.Emu(w*emuPerPixel), units.Emu(h*emuPerPixel)
	inline := dml.NewInline(
		*dmlct.NewPostvSz2D(cx, cy),
		dml.DocProp{ID: uint64(n), Name: fmt.Sprintf("Picture %d", n)},
		*dml.NewPicGraphic(dmlpic.NewPic(relID, n, cx, cy)),
	)

	p := doc.AddEmptyParagraph()
	p.Justification(stypes.JustificationCenter)
	p.Spacing(0, 240)
	p.GetCT().Children = append(p.GetCT().Children, ctypes.ParagraphChild{
		Run: &ctypes.Run{
			Children: []ctypes.RunChild{{Drawing: &dml.Drawing{Inline: []dml.Inline{inline}}}},
		},
	})
	return nil
}

// ScaleToWidth keeps the aspect ratio of a width x height picture scaled to
// target width.
func ScaleToWidth(width, height, target int) (int, int) {
	if width <= 0 || height <= 0 {
		return target, 0
	}
	h := (height*target*2 + width) / (2 * width)
	return target, h
}

func hasExtension(doc *docx.RootDoc, ext string) bool {
	for _, d := range doc.ContentType.Default {
		if d.Extension == ext {
			return true
		}
	}
	return false
}

func addRelation(doc *docx.RootDoc, relType, target string) string {
	id := "rId" + strconv.Itoa(doc.Document.IncRelationID())
	doc.Document.DocRels.Relationships = append(doc.Document.DocRels.Relationships, &docx.Relationship{
		ID:     id,
		Type:   relType,
		Target: target,
	})
	return id
}

// The footer part holds a single centered PAGE field.
type footer struct {
	XMLName xml.Name `xml:"w:ftr"`
	NS      string   `xml:"xmlns:w,attr"`
	P       footerParagraph
}

type footerParagraph struct {
	XMLName xml.Name `xml:"w:p"`
	Align   valAttr  `xml:"w:pPr>w:jc"`
	Field   simpleField
}

type valAttr struct {
	Val string `xml:"w:val,attr"`
}

type simpleField struct {
	XMLName xml.Name `xml:"w:fldSimple"`
	Instr   string   `xml:"w:instr,attr"`
	Text    string   `xml:"w:r>w:t"`
}

func addPageNumberFooter(doc *docx.RootDoc) error {
	part, err := xml.Marshal(footer{
		NS: constants.XMLNS_W,
		P: footerParagraph{
			Align: valAttr{Val: string(stypes.JustificationCenter)},
			Field: simpleField{Instr: " PAGE ", Text: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal footer: %w", err)
	}

	doc.FileMap.Store("word/"+footerPart, append([]byte(xml.Header), part...))
	_ = doc.ContentType.AddOverride("/word/"+footerPart, footerContentType)
	relID := addRelation(doc, footerRelation, footerPart)

	body := doc.Document.Body
	if body.SectPr == nil {
		body.SectPr = ctypes.NewSectionProper()
	}
	body.SectPr.FooterReference = &ctypes.FooterReference{Type: stypes.HdrFtrDefault, ID: relID}
	return nil
}
