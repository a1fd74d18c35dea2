package forms

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrLastItem    = errors.New("the last item cannot be removed")
	ErrUnknownItem = errors.New("no such item")
)

type ItemState int

const (
	// StateNew rows exist only on the client and are sent without an id.
	StateNew ItemState = iota
	// StateExisting rows carry the server id.
	StateExisting
	// StateMarkedForDeletion rows are hidden and sent with is_deleted on
	// update.
	StateMarkedForDeletion
)

func (s ItemState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateExisting:
		return "existing"
	case StateMarkedForDeletion:
		return "deleted"
	default:
		return "unknown"
	}
}

type LineItem struct {
	// Key addresses the row inside the draft: a client uuid for new rows,
	// the server id for the others.
	Key   string
	ID    int64
	State ItemState

	ProductID   *int64
	VariantID   *int64
	ProductName string
	VariantName string
	Unit        string
	Notes       string
	Quantity    float64
	UnitPrice   float64
	Total       float64
	// Stock is the known stock of the variant when it was picked.
	Stock int
}

func NewLineItem() LineItem {
	return LineItem{Key: uuid.NewString(), State: StateNew}
}

func ExistingLineItem(id int64) LineItem {
	return LineItem{Key: strconv.FormatInt(id, 10), ID: id, State: StateExisting}
}

func (l *LineItem) SetQuantity(q float64) {
	l.Quantity = q
	l.recompute()
}

func (l *LineItem) SetUnitPrice(p float64) {
	l.UnitPrice = p
	l.recompute()
}

func (l *LineItem) recompute() {
	l.Total = l.Quantity * l.UnitPrice
}

func (l LineItem) Visible() bool {
	return l.State != StateMarkedForDeletion
}

// idPtr is the id to send: nil for rows the server has not seen.
func (l LineItem) idPtr() *int64 {
	if l.State == StateNew {
		return nil
	}
	id := l.ID
	return &id
}

// Lines is the ordered item list of a draft.
type Lines struct {
	items []LineItem
}

func (ls *Lines) Add(item LineItem) LineItem {
	if item.Key == "" {
		item.Key = uuid.NewString()
	}
	item.recompute()
	ls.items = append(ls.items, item)
	return item
}

// Remove drops a new row and marks an existing one. The last visible row
// stays.
func (ls *Lines) Remove(key string) error {
	i := ls.index(key)
	if i < 0 || !ls.items[i].Visible() {
		return ErrUnknownItem
	}
	if len(ls.Visible()) <= 1 {
		return ErrLastItem
	}
	if ls.items[i].State == StateNew {
		ls.items = append(ls.items[:i], ls.items[i+1:]...)
		return nil
	}
	ls.items[i].State = StateMarkedForDeletion
	return nil
}

// Update applies fn to the row and recomputes its total.
func (ls *Lines) Update(key string, fn func(*LineItem)) error {
	i := ls.index(key)
	if i < 0 || !ls.items[i].Visible() {
		return ErrUnknownItem
	}
	fn(&ls.items[i])
	ls.items[i].recompute()
	return nil
}

func (ls *Lines) Get(key string) (LineItem, bool) {
	if i := ls.index(key); i >= 0 {
		return ls.items[i], true
	}
	return LineItem{}, false
}

// All includes rows marked for deletion.
func (ls *Lines) All() []LineItem {
	return append([]LineItem(nil), ls.items...)
}

func (ls *Lines) Visible() []LineItem {
	var out []LineItem
	for _, it := range ls.items {
		if it.Visible() {
			out = append(out, it)
		}
	}
	return out
}

func (ls *Lines) Total() float64 {
	var sum float64
	for _, it := range ls.items {
		if it.Visible() {
			sum += it.Total
		}
	}
	return sum
}

func (ls *Lines) index(key string) int {
	for i, it := range ls.items {
		if it.Key == key {
			return i
		}
	}
	return -1
}
