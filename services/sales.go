// Package services holds the logic that spans more than one store
// collection: sale reconciliation against stock, and the low-stock report.
package services

import (
	"context"
	"strings"

	"bvstock/config"
	"bvstock/models"
	"bvstock/store"
	"bvstock/utils"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BVSource decides where a sale's unit BV comes from.
type BVSource string

const (
	BVFromClient BVSource = "client"
	BVFromStock  BVSource = "stock"
)

var (
	salesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bvstock_sales_total",
			Help: "Sale mutations committed, by operation",
		},
		[]string{"op"},
	)
	bvRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bvstock_bv_recorded_total",
		Help: "Total BV of created sales",
	})
	insufficientStock = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bvstock_insufficient_stock_total",
		Help: "Sale writes rejected for lack of stock",
	})
)

// Collectors lists the domain metrics for registration next to the HTTP ones.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{salesRecorded, bvRecorded, insufficientStock}
}

type SaleInput struct {
	DistributorID string  `json:"distributorId"`
	Product       string  `json:"product"`
	Quantity      int     `json:"quantity"`
	BV            float64 `json:"bv"`
}

// SaleService keeps stock quantities consistent with the sales that draw on
// them. Every mutation runs in one store transaction, under a per-product
// lock when one is configured.
type SaleService struct {
	store  store.Store
	locker store.Locker
	source BVSource
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewSaleService(st store.Store, locker store.Locker, source BVSource, logger *logrus.Logger) *SaleService {
	if locker == nil {
		locker = store.NoopLocker{}
	}
	if source == "" {
		source = BVFromClient
	}
	return &SaleService{
		store:  st,
		locker: locker,
		source: source,
		logger: logger,
		tracer: otel.Tracer("bvstock/services"),
	}
}

func (s *SaleService) Source() BVSource { return s.source }

func (s *SaleService) validate(in *SaleInput) error {
	in.DistributorID = strings.TrimSpace(in.DistributorID)
	in.Product = strings.TrimSpace(in.Product)

	if in.DistributorID == "" || in.Product == "" || in.Quantity == 0 {
		return models.Invalid("All fields are required")
	}
	if s.source == BVFromClient && in.BV == 0 {
		return models.Invalid("All fields are required")
	}
	if in.Quantity < 0 {
		return models.Invalid("Quantity must be a positive number")
	}
	if in.BV < 0 {
		return models.Invalid("BV must not be negative")
	}
	return nil
}

func (s *SaleService) distributor(ctx context.Context, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, models.NotFound("Distributor")
	}
	if _, err := s.store.GetDistributor(ctx, id); err != nil {
		return primitive.NilObjectID, err
	}
	return id, nil
}

func (s *SaleService) unitBV(in SaleInput, stock *models.StockItem) float64 {
	if s.source == BVFromStock {
		return stock.BV
	}
	return in.BV
}

// saleStock finds the stock record a stored sale drew on: by name first,
// then by the id recorded at write time in case the item was renamed. A
// record that no longer exists yields nil.
func (s *SaleService) saleStock(ctx context.Context, sale *models.Sale) (*models.StockItem, error) {
	stock, err := s.store.FindStockByName(ctx, sale.Product)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if sale.StockID.IsZero() {
		return nil, nil
	}
	stock, err = s.store.GetStock(ctx, sale.StockID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return stock, err
}

// compensate undoes an adjustment already applied in this call. Inside a
// real transaction it is redundant; without one it is what keeps the
// rollback guarantee.
func (s *SaleService) compensate(ctx context.Context, id primitive.ObjectID, delta int) {
	if _, err := s.store.AdjustStock(ctx, id, delta); err != nil {
		config.LogError(s.logger, "services", "compensate", "stock compensation failed",
			map[string]any{"stock_id": id.Hex(), "delta": delta}, err)
	}
}

func (s *SaleService) finish(span trace.Span, op string, err error) {
	if err == nil {
		salesRecorded.WithLabelValues(op).Inc()
		return
	}
	if errors.Is(err, models.ErrInsufficientStock) {
		insufficientStock.Inc()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *SaleService) Create(ctx context.Context, in SaleInput) (sale *models.Sale, err error) {
	ctx, span := s.tracer.Start(ctx, "sales.Create", trace.WithAttributes(
		attribute.String("product", in.Product),
		attribute.Int("quantity", in.Quantity),
	))
	defer span.End()
	defer func() { s.finish(span, "create", err) }()

	if err := s.validate(&in); err != nil {
		return nil, err
	}

	release, err := s.locker.Lock(ctx, in.Product)
	if err != nil {
		return nil, err
	}
	defer release()

	var created models.Sale
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		distID, err := s.distributor(ctx, in.DistributorID)
		if err != nil {
			return err
		}
		stock, err := s.store.FindStockByName(ctx, in.Product)
		if err != nil {
			return err
		}
		if stock.Quantity < in.Quantity {
			return &models.InsufficientStockError{Product: stock.Name, Available: stock.Quantity, Requested: in.Quantity}
		}

		if _, err := s.store.AdjustStock(ctx, stock.ID, -in.Quantity); err != nil {
			return err
		}

		bv := s.unitBV(in, stock)
		created = models.Sale{
			Distributor: distID,
			Product:     stock.Name,
			StockID:     stock.ID,
			Quantity:    in.Quantity,
			BV:          bv,
			TotalBV:     utils.TotalBV(in.Quantity, bv),
		}
		if err := s.store.CreateSale(ctx, &created); err != nil {
			s.compensate(ctx, stock.ID, in.Quantity)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bvRecorded.Add(created.TotalBV)
	s.logger.WithFields(logrus.Fields{
		"sale_id":  created.ID.Hex(),
		"product":  created.Product,
		"quantity": created.Quantity,
		"total_bv": created.TotalBV,
	}).Info("sale recorded")
	return &created, nil
}

func (s *SaleService) Update(ctx context.Context, id primitive.ObjectID, in SaleInput) (sale *models.Sale, err error) {
	ctx, span := s.tracer.Start(ctx, "sales.Update", trace.WithAttributes(
		attribute.String("sale_id", id.Hex()),
		attribute.String("product", in.Product),
		attribute.Int("quantity", in.Quantity),
	))
	defer span.End()
	defer func() { s.finish(span, "update", err) }()

	if err := s.validate(&in); err != nil {
		return nil, err
	}

	current, err := s.store.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	release, err := s.locker.Lock(ctx, current.Product, in.Product)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated models.Sale
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.GetSale(ctx, id)
		if err != nil {
			return err
		}
		distID, err := s.distributor(ctx, in.DistributorID)
		if err != nil {
			return err
		}
		newStock, err := s.store.FindStockByName(ctx, in.Product)
		if err != nil {
			return err
		}
		oldStock, err := s.saleStock(ctx, existing)
		if err != nil {
			return err
		}

		undoRevert := func() {}
		if oldStock != nil {
			reverted, err := s.store.AdjustStock(ctx, oldStock.ID, existing.Quantity)
			if err != nil {
				return err
			}
			undoRevert = func() { s.compensate(ctx, oldStock.ID, -existing.Quantity) }
			if reverted.ID == newStock.ID {
				newStock = reverted
			}
		}

		if newStock.Quantity < in.Quantity {
			undoRevert()
			return &models.InsufficientStockError{Product: newStock.Name, Available: newStock.Quantity, Requested: in.Quantity}
		}
		if _, err := s.store.AdjustStock(ctx, newStock.ID, -in.Quantity); err != nil {
			undoRevert()
			return err
		}

		bv := s.unitBV(in, newStock)
		updated = *existing
		updated.Distributor = distID
		updated.Product = newStock.Name
		updated.StockID = newStock.ID
		updated.Quantity = in.Quantity
		updated.BV = bv
		updated.TotalBV = utils.TotalBV(in.Quantity, bv)
		if err := s.store.ReplaceSale(ctx, &updated); err != nil {
			s.compensate(ctx, newStock.ID, in.Quantity)
			undoRevert()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"sale_id":  updated.ID.Hex(),
		"product":  updated.Product,
		"quantity": updated.Quantity,
	}).Info("sale updated")
	return &updated, nil
}

// Delete removes a sale and returns its quantity to stock. A product that no
// longer exists is skipped silently.
func (s *SaleService) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := s.tracer.Start(ctx, "sales.Delete", trace.WithAttributes(attribute.String("sale_id", id.Hex())))
	defer span.End()
	defer func() { s.finish(span, "delete", err) }()

	current, err := s.store.GetSale(ctx, id)
	if err != nil {
		return err
	}
	release, err := s.locker.Lock(ctx, current.Product)
	if err != nil {
		return err
	}
	defer release()

	return s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.GetSale(ctx, id)
		if err != nil {
			return err
		}
		stock, err := s.saleStock(ctx, existing)
		if err != nil {
			return err
		}
		if stock != nil {
			if _, err := s.store.AdjustStock(ctx, stock.ID, existing.Quantity); err != nil {
				return err
			}
		}
		if err := s.store.DeleteSale(ctx, id); err != nil {
			if stock != nil {
				s.compensate(ctx, stock.ID, -existing.Quantity)
			}
			return err
		}
		return nil
	})
}

func (s *SaleService) List(ctx context.Context) ([]models.SaleView, error) {
	ctx, span := s.tracer.Start(ctx, "sales.List")
	defer span.End()

	sales, err := s.store.ListSales(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return sales, nil
}
