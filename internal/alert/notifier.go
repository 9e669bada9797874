// Package alert watches stock change events and raises one low-stock
// alert per product per restock cycle. The dedup set is persisted in
// bbolt instead of process-global state so restarts and multiple admin
// sessions cannot duplicate or lose alerts.
package alert

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/config"
	"github.com/openmercato/mercato/internal/checkout"
	"github.com/openmercato/mercato/internal/domain"
)

type Notifier struct {
	db                *gorm.DB
	dedup             *DedupStore
	smtp              config.SmtpConfig
	fallbackThreshold int
}

func NewNotifier(db *gorm.DB, dedup *DedupStore, smtp config.SmtpConfig, fallbackThreshold int) *Notifier {
	if fallbackThreshold <= 0 {
		fallbackThreshold = 5
	}
	return &Notifier{db: db, dedup: dedup, smtp: smtp, fallbackThreshold: fallbackThreshold}
}

// Subscribe attaches the notifier to the stock change topic.
func (n *Notifier) Subscribe(bus EventBus.Bus) error {
	return bus.Subscribe(checkout.EventStockChanged, n.OnStockChanged)
}

func (n *Notifier) thresholdFor(product *domain.Product) int {
	if product.StockMin > 0 {
		return product.StockMin
	}
	return n.fallbackThreshold
}

// OnStockChanged checks the product against its threshold. Crossing
// down raises one alert; rising back above re-arms it.
func (n *Notifier) OnStockChanged(productId int64) {
	var product domain.Product
	if err := n.db.First(&product, productId).Error; err != nil {
		zap.L().Warn("stock alert: product lookup failed", zap.Int64("product_id", productId), zap.Error(err))
		return
	}

	threshold := n.thresholdFor(&product)
	if product.Stock > threshold {
		if n.dedup.IsNotified(productId) {
			if err := n.dedup.Clear(productId); err != nil {
				zap.L().Warn("stock alert: dedup clear failed", zap.Int64("product_id", productId), zap.Error(err))
			}
		}
		return
	}

	first, err := n.dedup.MarkNotified(productId)
	if err != nil {
		zap.L().Warn("stock alert: dedup mark failed", zap.Int64("product_id", productId), zap.Error(err))
		return
	}
	if !first {
		return
	}

	zap.L().Warn("low stock alert",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int("stock", product.Stock),
		zap.Int("threshold", threshold))
}

// LowStockProducts lists enabled products at or below their threshold.
func (n *Notifier) LowStockProducts() ([]domain.Product, error) {
	var products []domain.Product
	if err := n.db.Where("status = ?", "enabled").Find(&products).Error; err != nil {
		return nil, err
	}
	low := products[:0]
	for _, p := range products {
		if p.Stock <= n.thresholdFor(&p) {
			low = append(low, p)
		}
	}
	return low, nil
}

// Digest is the low_stock_digest scheduler task: emails the current low
// stock list to the configured recipient.
func (n *Notifier) Digest(ctx context.Context) (string, error) {
	low, err := n.LowStockProducts()
	if err != nil {
		return "", err
	}
	if len(low) == 0 {
		return "no products below threshold", nil
	}
	if n.smtp.Host == "" || n.smtp.To == "" {
		return fmt.Sprintf("%d products low, smtp not configured", len(low)), nil
	}

	var body strings.Builder
	body.WriteString("Products at or below their low stock threshold:\n\n")
	for _, p := range low {
		fmt.Fprintf(&body, "- %s (sku %s): %d left\n", p.Name, p.Sku, p.Stock)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.smtp.From)
	msg.SetHeader("To", n.smtp.To)
	msg.SetHeader("Subject", fmt.Sprintf("Low stock digest: %d products", len(low)))
	msg.SetBody("text/plain", body.String())

	dialer := gomail.NewDialer(n.smtp.Host, n.smtp.Port, n.smtp.Username, n.smtp.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return "", err
	}
	return fmt.Sprintf("digest sent, %d products", len(low)), nil
}
