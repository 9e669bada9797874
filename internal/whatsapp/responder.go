// Package whatsapp implements the inbound messaging webhook: the
// verification handshake, a keyword responder that answers catalog and
// promotion queries from live data, and the outbound graph sender.
package whatsapp

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/pricing"
	"github.com/openmercato/mercato/pkg/common"
)

// Responder rule names, recorded on the processed message log.
const (
	RuleCatalog    = "catalog"
	RulePromotions = "promotions"
	RuleCategories = "categories"
	RuleCategory   = "category"
	RuleHelp       = "help"
	RuleSearch     = "search"
	RuleFallback   = "fallback"
)

// Responder answers free-text messages against the live catalog.
type Responder struct {
	db         *gorm.DB
	storeName  string
	greeting   string
	maxResults int
	printer    *message.Printer
}

func NewResponder(db *gorm.DB, storeName, greeting string, maxResults int) *Responder {
	if maxResults <= 0 {
		maxResults = 10
	}
	if storeName == "" {
		storeName = "Mercato"
	}
	return &Responder{
		db:         db,
		storeName:  storeName,
		greeting:   greeting,
		maxResults: maxResults,
		printer:    message.NewPrinter(language.Spanish),
	}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")
	return replacer.Replace(s)
}

func (r *Responder) money(v float64) string {
	return r.printer.Sprintf("$%.2f", v)
}

// Reply generates one text block for an inbound message and returns the
// rule that matched. Unknown text falls through to a product search.
func (r *Responder) Reply(text string) (string, string) {
	switch keyword := normalize(text); keyword {
	case "catalogo", "catalog", "productos":
		return r.replyCatalog(), RuleCatalog
	case "promociones", "promos", "ofertas":
		return r.replyPromotions(), RulePromotions
	case "categorias":
		return r.replyCategories(), RuleCategories
	case "ayuda", "help", "hola", "menu":
		return r.replyHelp(), RuleHelp
	default:
		if reply, ok := r.replyCategory(keyword); ok {
			return reply, RuleCategory
		}
		if reply, ok := r.replySearch(keyword); ok {
			return reply, RuleSearch
		}
		return r.replyHelp(), RuleFallback
	}
}

func (r *Responder) activePromotions() []domain.Promotion {
	var promotions []domain.Promotion
	r.db.Where("status = ?", common.ENABLED).Find(&promotions)
	return promotions
}

func (r *Responder) formatProducts(header string, products []domain.Product) string {
	resolver := pricing.NewResolver(r.activePromotions(), products, time.Now())

	var b strings.Builder
	fmt.Fprintf(&b, "*%s — %s*\n\n", r.storeName, header)
	for _, p := range products {
		quote := resolver.Resolve(p)
		if quote.HasPromotion {
			fmt.Fprintf(&b, "• %s: ~%s~ *%s* (-%.0f%%)\n",
				p.Name, r.money(quote.OriginalPrice), r.money(quote.FinalPrice), quote.DiscountPercent)
		} else {
			fmt.Fprintf(&b, "• %s: %s\n", p.Name, r.money(p.Price))
		}
	}
	b.WriteString("\nEscribe *ayuda* para ver todas las opciones.")
	return b.String()
}

func (r *Responder) replyCatalog() string {
	var products []domain.Product
	r.db.Where("status = ? AND stock > 0", common.ENABLED).
		Order("name ASC").Limit(r.maxResults).Find(&products)
	if len(products) == 0 {
		return "Por el momento no hay productos disponibles."
	}
	return r.formatProducts("Catálogo", products)
}

func (r *Responder) replyPromotions() string {
	promotions := r.activePromotions()
	now := time.Now()

	ids := make([]int64, 0, len(promotions))
	for _, promo := range promotions {
		ids = append(ids, promo.ProductId)
	}
	var products []domain.Product
	if len(ids) > 0 {
		r.db.Where("id IN ? AND status = ?", ids, common.ENABLED).Find(&products)
	}

	resolver := pricing.NewResolver(promotions, products, now)
	var promoted []domain.Product
	for _, p := range products {
		if resolver.Resolve(p).HasPromotion {
			promoted = append(promoted, p)
		}
	}
	if len(promoted) == 0 {
		return "No hay promociones activas en este momento."
	}
	if len(promoted) > r.maxResults {
		promoted = promoted[:r.maxResults]
	}
	return r.formatProducts("Promociones", promoted)
}

func (r *Responder) replyCategories() string {
	var categories []domain.Category
	r.db.Where("status = ?", common.ENABLED).Order("sort ASC, name ASC").Find(&categories)
	if len(categories) == 0 {
		return "No hay categorías registradas."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s — Categorías*\n\n", r.storeName)
	for _, c := range categories {
		fmt.Fprintf(&b, "• %s\n", c.Name)
	}
	b.WriteString("\nEscribe el nombre de una categoría para ver sus productos.")
	return b.String()
}

func (r *Responder) replyCategory(keyword string) (string, bool) {
	var categories []domain.Category
	r.db.Where("status = ?", common.ENABLED).Find(&categories)
	for _, c := range categories {
		if normalize(c.Name) != keyword {
			continue
		}
		var products []domain.Product
		r.db.Where("category_id = ? AND status = ? AND stock > 0", c.ID, common.ENABLED).
			Order("name ASC").Limit(r.maxResults).Find(&products)
		if len(products) == 0 {
			return fmt.Sprintf("No hay productos disponibles en *%s*.", c.Name), true
		}
		return r.formatProducts(c.Name, products), true
	}
	return "", false
}

func (r *Responder) replySearch(keyword string) (string, bool) {
	if len(keyword) < 3 {
		return "", false
	}
	// the keyword is already accent-folded, so stored names must be
	// folded the same way before matching
	var candidates []domain.Product
	r.db.Where("status = ? AND stock > 0", common.ENABLED).
		Order("name ASC").Find(&candidates)

	var products []domain.Product
	for _, p := range candidates {
		if strings.Contains(normalize(p.Name), keyword) {
			products = append(products, p)
			if len(products) == r.maxResults {
				break
			}
		}
	}
	if len(products) == 0 {
		return "", false
	}
	return r.formatProducts("Resultados", products), true
}

func (r *Responder) replyHelp() string {
	greeting := r.greeting
	if greeting == "" {
		greeting = "Hola!"
	}
	return fmt.Sprintf(`%s

*Opciones disponibles:*
• *catalogo* — ver productos disponibles
• *promociones* — ver ofertas vigentes
• *categorias* — ver el menú de categorías
• el nombre de una categoría o producto para buscarlo`, greeting)
}
