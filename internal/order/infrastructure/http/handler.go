package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-pos/internal/access"
	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	menudomain "github.com/dmehra2102/restaurant-pos/internal/menu/domain"
	"github.com/dmehra2102/restaurant-pos/internal/order/application"
	paymentapp "github.com/dmehra2102/restaurant-pos/internal/payment/application"
	paymentdomain "github.com/dmehra2102/restaurant-pos/internal/payment/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// IdempotencyHeader lets a till retry a payment without charging twice.
const IdempotencyHeader = "Idempotency-Key"

type Menu interface {
	List(ctx context.Context, f menudomain.Filter) ([]menudomain.Item, error)
}

type AuditLog interface {
	Latest(ctx context.Context, limit int) ([]auditdomain.Fact, error)
}

type Idempotency interface {
	RequestKey(scope string, parts ...string) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Handler struct {
	log      *slog.Logger
	ledger   *application.Ledger
	payments *paymentapp.Service
	menu     Menu
	audit    AuditLog
	gate     Gate
	idem     Idempotency
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewHandler wires the HTTP surface. idem may be nil, which disables
// Idempotency-Key handling.
func NewHandler(log *slog.Logger, ledger *application.Ledger, payments *paymentapp.Service, menu Menu, audit AuditLog, gate Gate, idem Idempotency) *Handler {
	return &Handler{
		log:      log,
		ledger:   ledger,
		payments: payments,
		menu:     menu,
		audit:    audit,
		gate:     gate,
		idem:     idem,
		validate: validator.New(),
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, withActor)

	r.With(h.require(access.MenuRead)).Get("/menu", h.listMenu)

	r.Route("/orders", func(r chi.Router) {
		r.With(h.require(access.OrdersRead)).Get("/", h.listOrders)
		r.With(h.require(access.OrdersWrite)).Post("/", h.createOrder)

		r.Route("/{id}", func(r chi.Router) {
			r.With(h.require(access.OrdersRead)).Get("/", h.getOrder)

			r.Group(func(r chi.Router) {
				r.Use(h.require(access.OrdersWrite))
				r.Post("/items", h.addItem)
				r.Patch("/items/{itemID}", h.updateItem)
				r.Delete("/items/{itemID}", h.removeItem)
				r.Post("/send", h.sendToKitchen)
				r.Put("/adjustments", h.applyAdjustments)
				r.Put("/kitchen-status", h.updateKitchenStatus)
				r.Put("/tax-rate", h.resetTaxRate)
				r.Put("/table", h.assignTable)
			})

			r.With(h.require(access.OrdersVoid)).Post("/void", h.voidOrder)
			r.With(h.require(access.PaymentsRead)).Get("/payments", h.listPayments)
			r.With(h.require(access.PaymentsWrite)).Post("/payments", h.processPayment)
		})
	})

	r.With(h.require(access.PaymentsRefund)).Post("/payments/{id}/refund", h.refundPayment)
	r.With(h.require(access.AuditRead)).Get("/audit", h.listAudit)

	return r
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid body: %v", apperr.ErrValidation, err)
	}
	return h.validate.Struct(dst)
}

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListMenu")
	defer span.End()

	q := r.URL.Query()
	f := menudomain.Filter{
		Category:      menudomain.Category(q.Get("category")),
		Tags:          q["tag"],
		Search:        q.Get("search"),
		AvailableOnly: q.Get("available") == "true",
	}
	items, err := h.menu.List(ctx, f)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.Create(ctx, req.Type, req.TableID)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID), attribute.Int64("order.number", o.OrderNumber))
	writeJSON(w, http.StatusCreated, viewOf(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	q := r.URL.Query()
	f := application.ListFilter{
		ActiveOnly: q.Get("active") == "true",
		TableID:    q.Get("table_id"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fail(h.log, w, span, fmt.Errorf("%w: bad limit %q", apperr.ErrValidation, s))
			return
		}
		f.Limit = n
	}
	orders, err := h.ledger.List(ctx, f)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.ledger.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddItem")
	defer span.End()

	var req addItemReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	it, err := h.ledger.AddItem(ctx, chi.URLParam(r, "id"), req.MenuItemID, qty, req.Notes)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateItem")
	defer span.End()

	var req updateItemReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.EditItem(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), application.ItemEdit{
		Delta: req.Delta,
		Notes: req.Notes,
	})
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveItem")
	defer span.End()

	o, err := h.ledger.RemoveItem(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) sendToKitchen(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SendToKitchen")
	defer span.End()

	n, err := h.ledger.SendToKitchen(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": n})
}

func (h *Handler) applyAdjustments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ApplyAdjustments")
	defer span.End()

	var req adjustmentsReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.ApplyTipAndDiscount(ctx, chi.URLParam(r, "id"), req.Tip, req.Discount)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) updateKitchenStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateKitchenStatus")
	defer span.End()

	var req kitchenStatusReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.UpdateKitchenStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) resetTaxRate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ResetTaxRate")
	defer span.End()

	var req taxRateReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.ResetTaxRate(ctx, chi.URLParam(r, "id"), req.TaxRate)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) assignTable(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AssignTable")
	defer span.End()

	var req tableReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.AssignTable(ctx, chi.URLParam(r, "id"), req.TableID)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) voidOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VoidOrder")
	defer span.End()

	var req voidReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	o, err := h.ledger.Void(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListPayments")
	defer span.End()

	ps, err := h.payments.ListByOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	if ps == nil {
		ps = []paymentdomain.Payment{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ProcessPayment")
	defer span.End()

	orderID := chi.URLParam(r, "id")
	var req paymentReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}

	var claim string
	if key := r.Header.Get(IdempotencyHeader); key != "" && h.idem != nil {
		claim = h.idem.RequestKey("payment", orderID, key)
		seen, err := h.idem.Seen(ctx, claim)
		if err != nil {
			fail(h.log, w, span, err)
			return
		}
		if seen {
			fail(h.log, w, span, fmt.Errorf("%w: payment request %s already received", apperr.ErrConflict, key))
			return
		}
	}

	p, err := h.payments.Process(ctx, paymentapp.ProcessRequest{
		OrderID:      orderID,
		Method:       paymentdomain.Method(req.Method),
		Amount:       req.Amount,
		Tip:          req.Tip,
		CashTendered: req.CashTendered,
		CardLast4:    req.CardLast4,
	})
	if err != nil {
		if claim != "" {
			if rerr := h.idem.Release(ctx, claim); rerr != nil {
				h.log.Warn("idempotency release failed", "key", claim, "err", rerr)
			}
		}
		fail(h.log, w, span, err)
		return
	}
	span.SetAttributes(attribute.String("payment.id", p.ID), attribute.String("payment.status", string(p.Status)))
	if p.Status == paymentdomain.StatusDeclined {
		writeJSON(w, http.StatusPaymentRequired, p)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefundPayment")
	defer span.End()

	var req refundReq
	if err := h.decode(r, &req); err != nil {
		fail(h.log, w, span, err)
		return
	}
	p, err := h.payments.Refund(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListAudit")
	defer span.End()

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fail(h.log, w, span, fmt.Errorf("%w: bad limit %q", apperr.ErrValidation, s))
			return
		}
		limit = n
	}
	facts, err := h.audit.Latest(ctx, limit)
	if err != nil {
		fail(h.log, w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, facts)
}
