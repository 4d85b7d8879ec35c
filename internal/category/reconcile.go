// Package category maps free-text category labels onto a canonical set.
package category

import (
	"strings"

	"github.com/dvloznov/ledgerplan/internal/domain"
)

// Reconciler maps labels onto a fixed, ordered list of canonical categories.
type Reconciler struct {
	canonical []string
	fallback  string
}

// NewReconciler builds a Reconciler over canonical. Order matters: the first
// partial match wins. Labels that match nothing map to domain.CategoryOther.
func NewReconciler(canonical []string) *Reconciler {
	return &Reconciler{
		canonical: append([]string(nil), canonical...),
		fallback:  domain.CategoryOther,
	}
}

// Reconcile returns, in order of preference, the canonical label equal to
// raw ignoring case, the first canonical label that contains raw or is
// contained by it, or the fallback.
func (r *Reconciler) Reconcile(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return r.fallback
	}
	for _, c := range r.canonical {
		if strings.ToLower(c) == label {
			return c
		}
	}
	for _, c := range r.canonical {
		lc := strings.ToLower(c)
		if strings.Contains(lc, label) || strings.Contains(label, lc) {
			return c
		}
	}
	return r.fallback
}

// Reconcile maps raw against canonical without building a Reconciler.
func Reconcile(raw string, canonical []string) string {
	return NewReconciler(canonical).Reconcile(raw)
}
