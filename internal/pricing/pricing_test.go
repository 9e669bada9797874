package pricing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmercato/mercato/internal/domain"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func enabledPromo(id, productId int64, ptype string, value float64) domain.Promotion {
	return domain.Promotion{ID: id, ProductId: productId, Type: ptype, Value: value, Status: "enabled"}
}

func TestResolveNoPromotion(t *testing.T) {
	product := domain.Product{ID: 1, Price: 99.5}
	quote := Resolve(product, nil, now)
	assert.False(t, quote.HasPromotion)
	assert.Equal(t, 99.5, quote.FinalPrice)
	assert.Equal(t, 99.5, quote.OriginalPrice)
	assert.Zero(t, quote.DiscountAmount)

	// promotion for another product must not match
	quote = Resolve(product, []domain.Promotion{enabledPromo(10, 2, domain.PromotionPercent, 50)}, now)
	assert.False(t, quote.HasPromotion)
	assert.Equal(t, 99.5, quote.FinalPrice)
}

func TestResolvePercent(t *testing.T) {
	product := domain.Product{ID: 1, Price: 200}
	quote := Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionPercent, 25)}, now)
	require.True(t, quote.HasPromotion)
	assert.Equal(t, 150.0, quote.FinalPrice)
	assert.Equal(t, 50.0, quote.DiscountAmount)
	assert.Equal(t, 25.0, quote.DiscountPercent)

	// over 100 percent floors at zero
	quote = Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionPercent, 150)}, now)
	assert.Equal(t, 0.0, quote.FinalPrice)
}

func TestResolveFixedPrice(t *testing.T) {
	product := domain.Product{ID: 1, Price: 80}
	quote := Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionFixed, 59.9)}, now)
	require.True(t, quote.HasPromotion)
	assert.Equal(t, 59.9, quote.FinalPrice)

	// fixed price applies regardless of original price
	product.Price = 10
	quote = Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionFixed, 5)}, now)
	assert.Equal(t, 5.0, quote.FinalPrice)
}

func TestResolveFixedPriceAboveOriginal(t *testing.T) {
	// a fixed price above the list price still applies, surfaced as a
	// negative discount
	product := domain.Product{ID: 1, Price: 50}
	quote := Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionFixed, 80)}, now)
	require.True(t, quote.HasPromotion)
	assert.Equal(t, 80.0, quote.FinalPrice)
	assert.Equal(t, int64(10), quote.PromotionId)
	assert.Equal(t, -30.0, quote.DiscountAmount)

	// with a cheaper alternative in play the lowest final price wins
	quote = Resolve(product, []domain.Promotion{
		enabledPromo(10, 1, domain.PromotionFixed, 80),
		enabledPromo(11, 1, domain.PromotionPercent, 50),
	}, now)
	assert.Equal(t, 25.0, quote.FinalPrice)
	assert.Equal(t, int64(11), quote.PromotionId)
}

func TestResolveAmount(t *testing.T) {
	product := domain.Product{ID: 1, Price: 30}
	quote := Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionAmount, 12)}, now)
	require.True(t, quote.HasPromotion)
	assert.Equal(t, 18.0, quote.FinalPrice)

	// discount larger than price floors at zero, never negative
	quote = Resolve(product, []domain.Promotion{enabledPromo(10, 1, domain.PromotionAmount, 100)}, now)
	assert.Equal(t, 0.0, quote.FinalPrice)
}

func TestResolveExpiredPromotionNeverSelected(t *testing.T) {
	product := domain.Product{ID: 1, Price: 100}
	past := now.Add(-24 * time.Hour)
	promo := enabledPromo(10, 1, domain.PromotionPercent, 50)
	promo.EndAt = &past
	// enabled flag set but window closed
	quote := Resolve(product, []domain.Promotion{promo}, now)
	assert.False(t, quote.HasPromotion)
	assert.Equal(t, 100.0, quote.FinalPrice)
}

func TestResolveNotYetStarted(t *testing.T) {
	product := domain.Product{ID: 1, Price: 100}
	future := now.Add(24 * time.Hour)
	promo := enabledPromo(10, 1, domain.PromotionPercent, 50)
	promo.StartAt = &future
	quote := Resolve(product, []domain.Promotion{promo}, now)
	assert.False(t, quote.HasPromotion)
}

func TestResolveDisabledAndMalformed(t *testing.T) {
	product := domain.Product{ID: 1, Price: 100}
	disabled := enabledPromo(10, 1, domain.PromotionPercent, 50)
	disabled.Status = "disabled"
	malformed := enabledPromo(11, 1, "bogus", 50)
	quote := Resolve(product, []domain.Promotion{disabled, malformed}, now)
	assert.False(t, quote.HasPromotion)
	assert.Equal(t, 100.0, quote.FinalPrice)
}

func TestResolveTieBreakDeterministic(t *testing.T) {
	product := domain.Product{ID: 1, Price: 100}
	weak := enabledPromo(30, 1, domain.PromotionPercent, 10)
	strong := enabledPromo(20, 1, domain.PromotionAmount, 40)
	twin := enabledPromo(5, 1, domain.PromotionFixed, 60)

	// lowest final price wins regardless of slice order
	quote := Resolve(product, []domain.Promotion{weak, strong, twin}, now)
	requireSame := func(q Quote) {
		assert.Equal(t, 60.0, q.FinalPrice)
		// 40-amount and 60-fixed both land on 60; the lower ID wins
		assert.Equal(t, int64(5), q.PromotionId)
	}
	requireSame(quote)
	requireSame(Resolve(product, []domain.Promotion{twin, weak, strong}, now))
	requireSame(Resolve(product, []domain.Promotion{strong, twin, weak}, now))
}

func TestResolveBundle(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Price: 10, Stock: 5},
		{ID: 2, Price: 5, Stock: 3},
	}
	pack := domain.Pack{
		ID: 100, Price: 20, Status: "enabled",
		Items: []domain.PackItem{
			{ProductId: 1, Quantity: 2},
			{ProductId: 2, Quantity: 1},
		},
	}
	r := NewResolver(nil, products, now)
	quote := r.ResolveBundle(pack)
	assert.Equal(t, 25.0, quote.IndividualPrice)
	assert.Equal(t, 20.0, quote.BundlePrice)
	assert.Equal(t, 5.0, quote.DiscountAmount)
	assert.Equal(t, 20.0, quote.DiscountPercent)
}

func TestResolveBundleMisconfigured(t *testing.T) {
	products := []domain.Product{{ID: 1, Price: 5, Stock: 1}}
	pack := domain.Pack{
		ID: 100, Price: 20, Status: "enabled",
		Items: []domain.PackItem{{ProductId: 1, Quantity: 1}},
	}
	r := NewResolver(nil, products, now)
	quote := r.ResolveBundle(pack)
	// bundle dearer than the itemized price shows a negative discount
	assert.Equal(t, -15.0, quote.DiscountAmount)

	// empty pack must not divide by zero
	empty := domain.Pack{ID: 101, Price: 10}
	quote = r.ResolveBundle(empty)
	assert.Zero(t, quote.IndividualPrice)
	assert.Zero(t, quote.DiscountPercent)
}

func TestOfferable(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Price: 10, Stock: 5},
		{ID: 2, Price: 5, Stock: 0},
	}
	r := NewResolver(nil, products, now)

	pack := domain.Pack{
		ID: 100, Price: 12, Status: "enabled",
		Items: []domain.PackItem{{ProductId: 1, Quantity: 1}},
	}
	assert.True(t, r.Offerable(pack))

	// any out-of-stock member makes the pack unofferable
	pack.Items = append(pack.Items, domain.PackItem{ProductId: 2, Quantity: 1})
	assert.False(t, r.Offerable(pack))

	// expired window
	past := now.Add(-time.Hour)
	pack.Items = pack.Items[:1]
	pack.EndAt = &past
	assert.False(t, r.Offerable(pack))
}

func TestAccumulateScenario(t *testing.T) {
	// one plain line (qty 3, unit 15, no promotion) and one pack line
	// (qty 1, bundle 20) -> subtotal 65
	r := NewResolver(nil, nil, now)
	lines := []CartLine{
		{Kind: domain.SaleLineProduct, Product: domain.Product{ID: 1, Price: 15}, Quantity: 3},
		{Kind: domain.SaleLinePack, Pack: domain.Pack{ID: 9, Price: 20}, Quantity: 1},
	}
	totals := r.Accumulate(lines)
	assert.Equal(t, 65.0, totals.Subtotal)
	assert.Equal(t, 65.0, totals.Total)
	assert.Zero(t, totals.Discount)
}

func TestAccumulateOrderIndependent(t *testing.T) {
	products := []domain.Product{
		{ID: 1, Price: 15},
		{ID: 2, Price: 40},
		{ID: 3, Price: 7.5},
	}
	promos := []domain.Promotion{enabledPromo(1, 2, domain.PromotionPercent, 50)}
	r := NewResolver(promos, products, now)

	lines := []CartLine{
		{Kind: domain.SaleLineProduct, Product: products[0], Quantity: 3},
		{Kind: domain.SaleLineProduct, Product: products[1], Quantity: 1},
		{Kind: domain.SaleLineProduct, Product: products[2], Quantity: 4},
		{Kind: domain.SaleLinePack, Pack: domain.Pack{ID: 9, Price: 20, Items: []domain.PackItem{{ProductId: 1, Quantity: 2}}}, Quantity: 2},
	}
	want := r.Accumulate(lines)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]CartLine, len(lines))
		copy(shuffled, lines)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, r.Accumulate(shuffled))
	}
}

func TestAccumulatePromotionApplied(t *testing.T) {
	products := []domain.Product{{ID: 1, Price: 100}}
	promos := []domain.Promotion{enabledPromo(1, 1, domain.PromotionPercent, 25)}
	r := NewResolver(promos, products, now)

	totals := r.Accumulate([]CartLine{
		{Kind: domain.SaleLineProduct, Product: products[0], Quantity: 2},
	})
	assert.Equal(t, 150.0, totals.Subtotal)
	assert.Equal(t, 50.0, totals.Discount)
	assert.Equal(t, totals.Subtotal, totals.Total)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.57, Round2(10.567))
	assert.Equal(t, 0.0, Round2(0.0049))
}
