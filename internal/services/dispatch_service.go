package services

import (
	"context"
	"fmt"
	"time"

	"example.com/dairydesk/services/billing/internal/messaging"
	"example.com/dairydesk/services/billing/internal/metrics"
	"example.com/dairydesk/services/billing/internal/models"
	"example.com/dairydesk/services/billing/internal/phone"
	"example.com/dairydesk/services/billing/internal/render"
	"example.com/dairydesk/services/billing/internal/repositories"
	"example.com/dairydesk/services/billing/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DispatchService renders bills and delivers them over the messaging
// channel. It only persists the gateway's message id; delivery beyond
// the send call is the gateway's concern.
type DispatchService struct {
	billRepo     *repositories.BillRepository
	deliveryRepo *repositories.DeliveryRepository
	settingsRepo *repositories.SettingsRepository
	billing      *BillingService
	renderer     render.InvoiceRenderer
	sender       messaging.Sender
	metrics      *metrics.Metrics
	tracer       tracing.Tracer
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	db *gorm.DB,
	billingService *BillingService,
	renderer render.InvoiceRenderer,
	sender messaging.Sender,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *DispatchService {
	return &DispatchService{
		billRepo:     repositories.NewBillRepository(db),
		deliveryRepo: repositories.NewDeliveryRepository(db),
		settingsRepo: repositories.NewSettingsRepository(db),
		billing:      billingService,
		renderer:     renderer,
		sender:       sender,
		metrics:      metricsCollector,
		tracer:       tracer,
	}
}

// RenderBillDocument renders a bill's invoice document without sending it.
func (s *DispatchService) RenderBillDocument(ctx context.Context, billID uuid.UUID) ([]byte, string, error) {
	bill, err := s.billing.GetBill(ctx, billID)
	if err != nil {
		return nil, "", err
	}

	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		return nil, "", err
	}
	entries, err := s.deliveryRepo.GetForPeriod(ctx, bill.CustomerID, bill.PeriodStart, bill.PeriodEnd)
	if err != nil {
		return nil, "", err
	}

	doc, err := s.renderer.RenderInvoice(bill, entries, settings)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to render invoice")
	}
	fileName := fmt.Sprintf("%s.%s", bill.InvoiceNumber, s.renderer.FileExtension())
	return doc, fileName, nil
}

// SendBill renders one bill and delivers it to the customer's chat. On
// success the bill is marked SENT with the gateway message id.
func (s *DispatchService) SendBill(ctx context.Context, billID uuid.UUID) (*models.Bill, error) {
	txn := s.tracer.StartTransaction("send-bill")
	defer s.tracer.EndTransaction(txn)

	bill, err := s.billing.GetBill(ctx, billID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	settings, err := s.settingsRepo.GetOrCreate(ctx)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}
	creds, err := gatewayCredentials(settings)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	doc, fileName, err := s.RenderBillDocument(ctx, billID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	caption := fmt.Sprintf("Milk bill for %s\nFrom: %s\nTotal: Rs.%.2f\nInvoice: %s",
		bill.PeriodStart.Format("January 2006"),
		settings.FarmName,
		bill.TotalAmount,
		bill.InvoiceNumber)

	span := s.tracer.StartSpan("gateway-send", txn)
	msgID, err := s.sender.SendDocument(ctx, creds, messaging.Document{
		ChatID:   phone.ChatID(bill.Customer.PhoneNumber),
		FileName: fileName,
		Caption:  caption,
		Data:     doc,
	})
	span.End()
	if err != nil {
		s.metrics.IncrementCounter("bill_send_failures")
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to deliver bill")
	}

	s.metrics.IncrementCounter("bills_sent")
	log.Info().
		Str("bill_id", bill.ID.String()).
		Str("invoice_number", bill.InvoiceNumber).
		Str("message_id", msgID).
		Msg("Bill delivered")

	return s.billing.MarkSent(ctx, billID, msgID)
}

// SendResult reports one bill's outcome in a bulk send.
type SendResult struct {
	BillID        uuid.UUID `json:"bill_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Success       bool      `json:"success"`
	MessageID     string    `json:"message_id,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// SendAllBills delivers every sendable bill of a period and reports each
// outcome individually. One bill's failure never stops the rest.
func (s *DispatchService) SendAllBills(ctx context.Context, periodStart, periodEnd time.Time) ([]SendResult, error) {
	if periodEnd.Before(periodStart) {
		return nil, errors.Wrap(ErrValidation, "period end before period start")
	}

	bills, err := s.billRepo.ListSendable(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	results := make([]SendResult, 0, len(bills))
	for _, bill := range bills {
		result := SendResult{BillID: bill.ID, InvoiceNumber: bill.InvoiceNumber}

		sent, err := s.SendBill(ctx, bill.ID)
		if err != nil {
			result.Error = err.Error()
			log.Error().
				Err(err).
				Str("bill_id", bill.ID.String()).
				Msg("Failed to send bill in bulk pass")
		} else {
			result.Success = true
			if sent.WhatsAppMsgID != nil {
				result.MessageID = *sent.WhatsAppMsgID
			}
		}
		results = append(results, result)
	}

	log.Info().
		Int("total", len(results)).
		Msg("Bulk send pass complete")
	return results, nil
}

func gatewayCredentials(settings *models.Settings) (messaging.Credentials, error) {
	if settings.WhatsAppInstanceID == nil || settings.WhatsAppAPIToken == nil {
		return messaging.Credentials{}, errors.Wrap(ErrValidation, "whatsapp gateway is not configured in settings")
	}
	return messaging.Credentials{
		InstanceID: *settings.WhatsAppInstanceID,
		APIToken:   *settings.WhatsAppAPIToken,
	}, nil
}
