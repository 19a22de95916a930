package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"event-checkout/internal/logger"
	"event-checkout/internal/metrics"
	"event-checkout/internal/models"
)

// A4 portrait layout in millimetres
const (
	pageWidth         = 210.0
	pageHeight        = 297.0
	pageMargin        = 15.0
	headerHeight      = 55.0
	ticketBlockHeight = 70.0
	ticketBlockGap    = 5.0
	qrImageSize       = 50.0
)

// Document is the rendered ticket PDF of an order. It is never stored.
type Document struct {
	Reference string
	Tickets   []models.RenderedTicket
	Pages     int
	PDF       []byte
	Failures  []TicketFailure
}

// TicketFailure records a ticket rendered without its QR code
type TicketFailure struct {
	TicketID string
	Reason   string
}

// Filename returns the attachment name of the document
func (d *Document) Filename() string {
	return fmt.Sprintf("tickets-%s.pdf", d.Reference)
}

// TicketPlacement positions one ticket block. Page is 1-based.
type TicketPlacement struct {
	Index int
	Page  int
	Y     float64
}

// LayoutTickets places count fixed-height ticket blocks. The first page reserves
// room for the document header; a block that would cross the bottom margin moves
// to a new page. It returns the placements and the total page count.
func LayoutTickets(count int) ([]TicketPlacement, int) {
	bottom := pageHeight - pageMargin
	page := 1
	y := pageMargin + headerHeight

	placements := make([]TicketPlacement, 0, count)
	for i := 0; i < count; i++ {
		if y+ticketBlockHeight > bottom {
			page++
			y = pageMargin
		}
		placements = append(placements, TicketPlacement{Index: i, Page: page, Y: y})
		y += ticketBlockHeight + ticketBlockGap
	}
	return placements, page
}

// ExpandTickets produces one ticket per seat, in line order, seats numbered from 1 per tier
func ExpandTickets(order *models.Order) []models.RenderedTicket {
	tickets := make([]models.RenderedTicket, 0, order.TicketCount())
	seats := make(map[string]int, len(order.Lines))
	for _, line := range order.Lines {
		for n := 0; n < line.Quantity; n++ {
			seats[line.TierID]++
			seat := seats[line.TierID]
			id := models.NewTicketID(order.Reference, line.TierID, seat)
			tickets = append(tickets, models.RenderedTicket{
				TicketID:  id,
				TierID:    line.TierID,
				TierName:  line.Name,
				UnitPrice: line.UnitPrice,
				SeatIndex: seat,
				QRPayload: id,
			})
		}
	}
	return tickets
}

// PDFService renders printable tickets with QR codes
type PDFService struct {
	qr     QRGenerator
	logger *zap.Logger
}

// NewPDFService creates a new PDF service
func NewPDFService(qr QRGenerator, log *zap.Logger) *PDFService {
	if qr == nil {
		qr = NewQRCodeGenerator(DefaultQRSize)
	}
	return &PDFService{qr: qr, logger: logger.OrNop(log)}
}

// Render builds the ticket document of order. A ticket whose QR code cannot be
// generated is rendered with a placeholder and reported in Document.Failures;
// rendering fails only when the order has no tickets. The same order always yields the same bytes.
func (s *PDFService) Render(ctx context.Context, order *models.Order) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewError(models.KindDelivery, "render cancelled", err)
	}

	tickets := ExpandTickets(order)
	if len(tickets) == 0 {
		return nil, models.NewError(models.KindDelivery, fmt.Sprintf("order %s has no tickets", order.Reference), nil)
	}

	doc := &Document{Reference: order.Reference}
	images := make(map[string][]byte, len(tickets))
	for i := range tickets {
		png, err := s.qr.Generate(tickets[i].QRPayload)
		if err != nil {
			s.logger.Warn("QR code generation failed",
				zap.String("reference", order.Reference),
				zap.String("ticket_id", tickets[i].TicketID),
				zap.Error(err))
			metrics.QRFailuresTotal.Inc()
			doc.Failures = append(doc.Failures, TicketFailure{TicketID: tickets[i].TicketID, Reason: err.Error()})
			continue
		}
		tickets[i].HasCode = true
		images[tickets[i].TicketID] = png
	}

	placements, pages := LayoutTickets(len(tickets))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(order.PaymentDate)
	pdf.SetModificationDate(order.PaymentDate)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Tickets "+order.Reference, true)
	pdf.SetAuthor("Event Tickets", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	page := 0
	for _, p := range placements {
		for page < p.Page {
			pdf.AddPage()
			page++
			if page == 1 {
				s.drawHeader(pdf, tr, order)
			}
		}
		t := tickets[p.Index]
		s.drawTicket(pdf, tr, order, t, images[t.TicketID], p.Y)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, models.NewError(models.KindDelivery, "failed to generate PDF", err)
	}

	doc.Tickets = tickets
	doc.Pages = pages
	doc.PDF = buf.Bytes()
	return doc, nil
}

func (s *PDFService) drawHeader(pdf *fpdf.Fpdf, tr func(string) string, order *models.Order) {
	width := pageWidth - 2*pageMargin

	pdf.SetXY(pageMargin, pageMargin)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(width, 10, tr(order.Event.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(width, 6, order.Event.StartDate.Format("Monday, 2 January 2006 at 15:04"), "", 1, "L", false, 0, "")

	location := order.Event.Location
	if order.Event.Venue != "" {
		location = order.Event.Venue + ", " + location
	}
	pdf.CellFormat(width, 6, tr(location), "", 1, "L", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(width, 6, "Order "+order.Reference, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(width, 5, tr(fmt.Sprintf("%s <%s>", order.Billing.Name, order.Billing.Email)), "", 1, "L", false, 0, "")
	pdf.CellFormat(width, 5, fmt.Sprintf("%d ticket(s), total %s %s", order.TicketCount(), order.Currency, order.Total.StringFixed(2)), "", 1, "L", false, 0, "")

	lineY := pageMargin + headerHeight - 5
	pdf.Line(pageMargin, lineY, pageWidth-pageMargin, lineY)
}

func (s *PDFService) drawTicket(pdf *fpdf.Fpdf, tr func(string) string, order *models.Order, t models.RenderedTicket, png []byte, y float64) {
	width := pageWidth - 2*pageMargin
	textWidth := width - qrImageSize - 15

	pdf.Rect(pageMargin, y, width, ticketBlockHeight, "D")

	x := pageMargin + 5
	pdf.SetXY(x, y+6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(textWidth, 8, tr(t.TierName), "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(textWidth, 6, tr(order.Event.Title), "", 2, "L", false, 0, "")
	pdf.CellFormat(textWidth, 6, fmt.Sprintf("Price: %s %s", order.Currency, t.UnitPrice.StringFixed(2)), "", 2, "L", false, 0, "")
	pdf.CellFormat(textWidth, 6, fmt.Sprintf("Seat %d", t.SeatIndex), "", 2, "L", false, 0, "")

	pdf.SetFont("Courier", "", 9)
	pdf.CellFormat(textWidth, 6, t.TicketID, "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetXY(x, y+ticketBlockHeight-10)
	pdf.CellFormat(textWidth, 5, "Present this ticket at the entrance. Valid for one admission.", "", 0, "L", false, 0, "")

	qrX := pageWidth - pageMargin - qrImageSize - 5
	qrY := y + (ticketBlockHeight-qrImageSize)/2
	if png == nil {
		pdf.Rect(qrX, qrY, qrImageSize, qrImageSize, "D")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetXY(qrX, qrY+qrImageSize/2-3)
		pdf.CellFormat(qrImageSize, 6, "Code unavailable", "", 0, "C", false, 0, "")
		return
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	name := "qr-" + t.TicketID
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, qrX, qrY, qrImageSize, qrImageSize, false, opts, 0, "")
}
