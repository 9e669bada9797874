// Package checkout turns a cart into a persisted sale. The whole commit
// is one database transaction: sale row, detail rows and stock
// decrements either all land or none do, and every decrement is guarded
// so stock can never go below zero even under concurrent checkouts.
package checkout

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/pricing"
	"github.com/openmercato/mercato/pkg/common"
	"github.com/openmercato/mercato/pkg/metrics"
)

// Event bus topics published after a successful commit.
const (
	EventSaleCreated  = "sale.created"
	EventStockChanged = "stock.changed"
)

var (
	ErrEmptyCart         = errors.New("cart has no lines")
	ErrProductNotFound   = errors.New("product not found or disabled")
	ErrPackNotOfferable  = errors.New("pack is not offerable")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTotalMismatch     = errors.New("client total does not match server total")
	ErrBadQuantity       = errors.New("line quantity must be positive")
)

// LineInput is one requested cart line, by reference.
type LineInput struct {
	Kind      string `json:"kind" validate:"required,oneof=product pack"`
	ProductId int64  `json:"product_id,string"`
	PackId    int64  `json:"pack_id,string"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// Request is a checkout submission.
type Request struct {
	OperatorId   int64       `json:"operator_id,string"`
	CustomerId   int64       `json:"customer_id,string"`
	CustomerName string      `json:"customer_name"`
	PayMethod    string      `json:"pay_method"`
	Remark       string      `json:"remark"`
	ClientTotal  float64     `json:"client_total"` // advisory, verified against the server total
	Lines        []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// QuoteResult is a priced cart preview.
type QuoteResult struct {
	Lines  []QuotedLine       `json:"lines"`
	Totals pricing.CartTotals `json:"totals"`
}

// QuotedLine echoes one input line with its resolved pricing.
type QuotedLine struct {
	Kind      string  `json:"kind"`
	ProductId int64   `json:"product_id,string,omitempty"`
	PackId    int64   `json:"pack_id,string,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ListPrice float64 `json:"list_price"`
	Total     float64 `json:"total"`
}

type Service struct {
	db        *gorm.DB
	bus       EventBus.Bus
	tolerance float64
}

func NewService(db *gorm.DB, bus EventBus.Bus) *Service {
	return &Service{db: db, bus: bus, tolerance: 0.01}
}

// SetTolerance overrides the allowed gap between the advisory client
// total and the recomputed server total.
func (s *Service) SetTolerance(t float64) {
	if t > 0 {
		s.tolerance = t
	}
}

// resolverFor loads the products, packs and active promotions referenced
// by lines and builds one pricing resolver pinned to now.
func (s *Service) resolverFor(lines []LineInput, now time.Time) (*pricing.Resolver, map[int64]domain.Product, map[int64]domain.Pack, error) {
	productIds := make([]int64, 0, len(lines))
	packIds := make([]int64, 0)
	for _, line := range lines {
		switch line.Kind {
		case domain.SaleLinePack:
			packIds = append(packIds, line.PackId)
		default:
			productIds = append(productIds, line.ProductId)
		}
	}

	var packs []domain.Pack
	if len(packIds) > 0 {
		if err := s.db.Preload("Items").Where("id IN ?", packIds).Find(&packs).Error; err != nil {
			return nil, nil, nil, err
		}
		// pack member products participate in pricing and stock checks
		for _, pack := range packs {
			for _, item := range pack.Items {
				productIds = append(productIds, item.ProductId)
			}
		}
	}

	var products []domain.Product
	if len(productIds) > 0 {
		if err := s.db.Where("id IN ?", productIds).Find(&products).Error; err != nil {
			return nil, nil, nil, err
		}
	}

	var promotions []domain.Promotion
	if err := s.db.Where("status = ?", common.ENABLED).Find(&promotions).Error; err != nil {
		return nil, nil, nil, err
	}

	productIdx := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		productIdx[p.ID] = p
	}
	packIdx := make(map[int64]domain.Pack, len(packs))
	for _, p := range packs {
		packIdx[p.ID] = p
	}

	return pricing.NewResolver(promotions, products, now), productIdx, packIdx, nil
}

// Quote prices the requested lines without committing anything. The
// admin cart display and the final commit both go through this path so
// the total shown always matches the total persisted.
func (s *Service) Quote(ctx context.Context, lines []LineInput) (*QuoteResult, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	now := time.Now()
	resolver, products, packs, err := s.resolverFor(lines, now)
	if err != nil {
		return nil, err
	}

	result := &QuoteResult{}
	cartLines := make([]pricing.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, errors.Wrapf(ErrBadQuantity, "quantity %d", line.Quantity)
		}
		switch line.Kind {
		case domain.SaleLinePack:
			pack, found := packs[line.PackId]
			if !found {
				return nil, errors.Wrapf(ErrPackNotOfferable, "pack %d", line.PackId)
			}
			if !resolver.Offerable(pack) {
				return nil, errors.Wrapf(ErrPackNotOfferable, "pack %d", pack.ID)
			}
			bundle := resolver.ResolveBundle(pack)
			cartLines = append(cartLines, pricing.CartLine{Kind: domain.SaleLinePack, Pack: pack, Quantity: line.Quantity})
			result.Lines = append(result.Lines, QuotedLine{
				Kind:      domain.SaleLinePack,
				PackId:    pack.ID,
				Name:      pack.Name,
				Quantity:  line.Quantity,
				UnitPrice: pack.Price,
				ListPrice: bundle.IndividualPrice,
				Total:     pricing.Round2(pack.Price * float64(line.Quantity)),
			})
		default:
			product, found := products[line.ProductId]
			if !found || product.Status != common.ENABLED {
				return nil, errors.Wrapf(ErrProductNotFound, "product %d", line.ProductId)
			}
			quote := resolver.Resolve(product)
			cartLines = append(cartLines, pricing.CartLine{Kind: domain.SaleLineProduct, Product: product, Quantity: line.Quantity})
			result.Lines = append(result.Lines, QuotedLine{
				Kind:      domain.SaleLineProduct,
				ProductId: product.ID,
				Name:      product.Name,
				Quantity:  line.Quantity,
				UnitPrice: quote.FinalPrice,
				ListPrice: quote.OriginalPrice,
				Total:     pricing.Round2(quote.FinalPrice * float64(line.Quantity)),
			})
		}
	}

	totals := resolver.Accumulate(cartLines)
	totals.Subtotal = pricing.Round2(totals.Subtotal)
	totals.Discount = pricing.Round2(totals.Discount)
	totals.Total = pricing.Round2(totals.Total)
	result.Totals = totals
	return result, nil
}

// Commit validates, prices and persists a sale atomically. Stock is
// decremented with a floor guard inside the same transaction; any line
// failing rolls back the entire sale.
func (s *Service) Commit(ctx context.Context, req Request) (*domain.Sale, error) {
	quote, err := s.Quote(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	if req.ClientTotal > 0 && math.Abs(req.ClientTotal-quote.Totals.Total) > s.tolerance {
		return nil, errors.Wrapf(ErrTotalMismatch, "client %.2f server %.2f", req.ClientTotal, quote.Totals.Total)
	}

	now := time.Now()
	sale := &domain.Sale{
		ID:           common.UUIDint64(),
		SaleNo:       fmt.Sprintf("S%s-%06d", now.Format("20060102"), common.UUIDint64()%1000000),
		OperatorId:   req.OperatorId,
		CustomerId:   req.CustomerId,
		CustomerName: req.CustomerName,
		Subtotal:     quote.Totals.Subtotal,
		Discount:     quote.Totals.Discount,
		Total:        quote.Totals.Total,
		PayMethod:    req.PayMethod,
		Remark:       req.Remark,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	touched := make([]int64, 0, len(req.Lines))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return err
		}

		for i, line := range quote.Lines {
			detail := domain.SaleDetail{
				ID:        common.UUIDint64(),
				SaleId:    sale.ID,
				Kind:      line.Kind,
				ProductId: line.ProductId,
				PackId:    line.PackId,
				Name:      line.Name,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				ListPrice: line.ListPrice,
				Total:     line.Total,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}

			switch line.Kind {
			case domain.SaleLinePack:
				pack := domain.Pack{}
				if err := tx.Preload("Items").First(&pack, line.PackId).Error; err != nil {
					return err
				}
				for _, item := range pack.Items {
					qty := item.Quantity * line.Quantity
					if err := decrementStock(tx, item.ProductId, qty); err != nil {
						return err
					}
					touched = append(touched, item.ProductId)
				}
			default:
				if err := decrementStock(tx, line.ProductId, req.Lines[i].Quantity); err != nil {
					return err
				}
				touched = append(touched, line.ProductId)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Record(metrics.MetricSaleCount, 1)
	metrics.Record(metrics.MetricSaleAmount, sale.Total)

	if s.bus != nil {
		s.bus.Publish(EventSaleCreated, sale.ID)
		for _, productId := range touched {
			s.bus.Publish(EventStockChanged, productId)
		}
	}

	zap.L().Info("sale committed",
		zap.String("sale_no", sale.SaleNo),
		zap.Float64("total", sale.Total),
		zap.Int("lines", len(quote.Lines)))

	sale.Details = nil
	return sale, nil
}

// decrementStock performs the atomic floor-guarded decrement. Zero rows
// affected means the guard rejected the update: not enough stock.
func decrementStock(tx *gorm.DB, productId int64, qty int) error {
	res := tx.Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", productId, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrInsufficientStock, "product %d qty %d", productId, qty)
	}
	return nil
}
