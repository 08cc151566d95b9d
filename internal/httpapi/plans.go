package httpapi

import "net/http"

type planResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	OriginalPrice   float64  `json:"originalPrice"`
	DiscountedPrice float64  `json:"discountedPrice"`
	DurationDays    int      `json:"durationDays"`
	Features        []string `json:"features"`
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		if !p.Active {
			continue
		}
		out = append(out, planResponse{
			ID:              p.ID,
			Name:            p.Name,
			OriginalPrice:   p.OriginalPrice.InexactFloat64(),
			DiscountedPrice: p.DiscountedPrice.InexactFloat64(),
			DurationDays:    p.DurationDays,
			Features:        p.Features,
		})
	}

	writeJSON(w, http.StatusOK, out)
}
