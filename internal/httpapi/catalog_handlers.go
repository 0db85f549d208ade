package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"bazaar.dev/internal/catalog"
)

type shopRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type shopUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type productRequest struct {
	ShopID     int64  `json:"shop_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// handleShops creates a shop owned by the caller. Sellers and admins only.
func (a *API) handleShops(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	ctx := r.Context()
	id, err := a.policy.VerifyAuthenticated(ctx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !a.policy.IsAdmin(ctx) {
		if err := a.policy.VerifySeller(ctx); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	var req shopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	shop, err := a.catalog.CreateShop(ctx, catalog.Shop{
		OwnerID:     id.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shop)
}

// handleShop serves /api/shops/{slug}. Reads are public; writes require
// ownership or the admin role.
func (a *API) handleShop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := r.PathValue("slug")
	switch r.Method {
	case http.MethodGet:
		id, err := a.policy.ResolveShopID(ctx, slug)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		shop, err := a.catalog.GetShop(ctx, id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, shop)
	case http.MethodPut:
		id, err := a.policy.VerifyCanManageShopBySlug(ctx, slug)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		var req shopUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeDecodeError(w, r, err)
			return
		}
		shop, err := a.catalog.UpdateShop(ctx, id, catalog.ShopUpdate{Name: req.Name, Description: req.Description})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, shop)
	case http.MethodDelete:
		id, err := a.policy.VerifyCanManageShopBySlug(ctx, slug)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if err := a.catalog.DeleteShop(ctx, id); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	ctx := r.Context()
	if _, err := a.policy.VerifyAuthenticated(ctx); err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if err := a.policy.VerifyCanManageShop(ctx, req.ShopID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := a.catalog.CreateProduct(ctx, catalog.Product{
		ShopID:     req.ShopID,
		Name:       req.Name,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	ctx := r.Context()
	if err := a.policy.VerifyCanManageProduct(ctx, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := a.catalog.DeleteProduct(ctx, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload accepts an opaque body from an authenticated caller and
// reports its size. The payload itself is discarded.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, err := a.policy.VerifyAuthenticated(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	n, err := io.Copy(io.Discard, r.Body)
	if err != nil {
		writeDecodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"owner_id":       id.ID,
		"received_bytes": n,
		"content_type":   r.Header.Get("Content-Type"),
	})
}
