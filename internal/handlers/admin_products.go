package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
)

// SearchProducts renders the search form. Results are fetched only when the
// form was submitted; a failed search keeps the form values and shows no
// results.
func (h *AdminHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	values := r.URL.Query()
	query := models.SearchQueryFromValues(values)

	data := h.page(r, session, "Products")
	data["Query"] = query
	data["Configured"] = h.Settings.Credentials().Complete()
	data["Products"] = []models.Product{}

	if values.Get("search") != "" {
		data["Searched"] = true
		products, err := h.Catalog.Search(r.Context(), query)
		if err != nil {
			_, msg := errorStatus(err)
			slog.Warn("Product search failed", "request_id", RequestID(r.Context()), "error", err)
			data["Error"] = msg
			data["Flashes"] = append(data["Flashes"].([]FlashMessage), FlashMessage{Type: "error", Message: "Search failed: " + msg})
		} else {
			data["Products"] = products
		}
	}

	session.Save(r, w)
	h.Templates.Render(w, "products.html", data)
}

// EditProductForm shows one product. With supplier=1 the supplier data for its
// SKU is applied to the form before rendering; nothing is saved until submit.
func (h *AdminHandler) EditProductForm(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		h.flash(w, r, session, "error", "Invalid product ID.", "/admin/products")
		return
	}

	product, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		_, msg := errorStatus(err)
		slog.Warn("Failed to load product", "id", id, "error", err)
		h.flash(w, r, session, "error", "Could not load product: "+msg, "/admin/products")
		return
	}

	data := h.page(r, session, "Edit "+product.Name)
	if r.URL.Query().Get("supplier") == "1" {
		draft, err := h.Catalog.SupplierDraft(r.Context(), product.SKU)
		if err != nil {
			_, msg := errorStatus(err)
			data["Flashes"] = append(data["Flashes"].([]FlashMessage), FlashMessage{Type: "error", Message: "Could not fetch supplier data: " + msg})
		} else {
			catalog.ApplyDraft(product, draft)
			data["Flashes"] = append(data["Flashes"].([]FlashMessage), FlashMessage{Type: "info", Message: "Supplier data applied. Review the changes and save to update the store."})
		}
	}
	data["Product"] = product

	session.Save(r, w)
	h.Templates.Render(w, "product_edit.html", data)
}

// UpdateProduct overwrites the product with the submitted form, then sends the
// browser back to the edit page so it shows the store's copy.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)

	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.flash(w, r, session, "error", "Invalid product ID.", "/admin/products")
		return
	}
	editURL := "/admin/products/edit?id=" + strconv.FormatInt(id, 10)

	current, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		_, msg := errorStatus(err)
		h.flash(w, r, session, "error", "Could not load product: "+msg, editURL)
		return
	}

	product, err := productFromForm(r, *current)
	if err != nil {
		_, msg := errorStatus(err)
		h.flash(w, r, session, "error", msg, editURL)
		return
	}

	updated, err := h.Catalog.Update(r.Context(), id, product)
	if err != nil {
		_, msg := errorStatus(err)
		slog.Warn("Product update failed", "id", id, "error", err)
		h.flash(w, r, session, "error", "Update failed: "+msg, editURL)
		return
	}

	h.recordActivity(&models.Activity{
		Kind:        models.ActivityProductUpdate,
		ProductID:   updated.ID,
		ProductSKU:  updated.SKU,
		ProductName: updated.Name,
		Actor:       h.actor(session),
	})
	slog.Info("Product updated", "id", updated.ID, "sku", updated.SKU, "actor", h.actor(session))
	h.flash(w, r, session, "success", "Product updated successfully!", editURL)
}

// productFromForm overlays the edit form onto the stored product, so fields the
// form does not show are written back unchanged.
func productFromForm(r *http.Request, p models.Product) (models.Product, error) {
	p.Name = strings.TrimSpace(r.FormValue("name"))
	p.SKU = strings.TrimSpace(r.FormValue("sku"))
	p.GlobalUniqueID = strings.TrimSpace(r.FormValue("global_unique_id"))
	p.RegularPrice = strings.TrimSpace(r.FormValue("regular_price"))
	p.SalePrice = strings.TrimSpace(r.FormValue("sale_price"))
	p.Description = r.FormValue("description")
	p.ShortDescription = r.FormValue("short_description")
	if status := r.FormValue("status"); status != "" {
		p.Status = status
	}
	p.ManageStock = r.FormValue("manage_stock") != ""

	p.StockQuantity = nil
	if v := strings.TrimSpace(r.FormValue("stock_quantity")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &catalog.ValidationError{Field: "stock_quantity", Message: "must be a whole number"}
		}
		p.StockQuantity = &n
	}

	known := make(map[string]models.Image, len(p.Images))
	for _, img := range p.Images {
		known[img.Src] = img
	}
	var images []models.Image
	for _, line := range strings.Split(r.FormValue("images"), "\n") {
		src := strings.TrimSpace(line)
		if src == "" {
			continue
		}
		if img, ok := known[src]; ok {
			images = append(images, img)
			continue
		}
		images = append(images, models.Image{Src: src})
	}
	p.Images = images
	return p, nil
}
