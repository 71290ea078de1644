package services

import (
	"context"
	"sort"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
)

// unitOfWork runs store transactions bounded by a timeout.
type unitOfWork struct {
	store   store.Store
	timeout time.Duration
}

// run executes fn in one transaction. what names the record a bare
// store.ErrNotFound refers to.
func (u unitOfWork) run(ctx context.Context, what string, fn func(tx store.Tx) error) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	return fromStore(u.store.Atomic(ctx, fn), what)
}

// commitInventory applies the inventory commit of lines: every product is
// locked in id order, decremented with a floor of zero and has its bought
// counter raised. Products deleted since the snapshot was taken are skipped
// and returned in missing.
func commitInventory(ctx context.Context, tx store.Tx, lines []models.OrderLine) (committed []*models.Product, missing []int64, err error) {
	qty := make(map[int64]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
	}
	ids := make([]int64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products := tx.Products()
	for _, id := range ids {
		p, err := products.LockProduct(ctx, id)
		if err != nil {
			if isNotFound(err) {
				missing = append(missing, id)
				continue
			}
			return nil, nil, err
		}
		p.CommitPurchase(qty[id])
		if err := products.SaveInventory(ctx, p); err != nil {
			return nil, nil, err
		}
		committed = append(committed, p)
	}
	return committed, missing, nil
}

func productIDs(products []*models.Product) []int64 {
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
