package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	"github.com/zhouzirui/aiva/backend/pkg/utils"
)

const (
	defaultLimit   = 20
	maxLimit       = 100
	recommendLimit = 3
)

// Handler 商品目录的只读HTTP处理器
type Handler struct {
	catalog catalog.Catalog
	logger  *zap.Logger
}

// New 创建目录处理器
func New(c catalog.Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{catalog: c, logger: logger.Named("catalog_handler")}
}

// RegisterRoutes 注册目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.handleSearch)
	r.Get("/products/{id}", h.handleProduct)
	r.Get("/products/{id}/availability", h.handleAvailability)
	r.Get("/recommendations", h.handleRecommendations)
	r.Get("/size-guide/{category}", h.handleSizeGuide)
	r.Get("/shipping-info", h.handleShipping)
	r.Get("/promotions", h.handlePromotions)
}

// handleSearch 支持 q/category/gender/size/color/brand/min_price/max_price/on_sale/limit 参数
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := parseFilters(q.Get)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := parseLimit(q.Get("limit"), defaultLimit)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.catalog.Search(r.Context(), q.Get("q"), filters, limit)
	if err != nil {
		h.logger.Error("catalog search failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, products)
}

func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxLimit), nil
}

type badParam string

func (e badParam) Error() string { return "invalid " + string(e) }

func parseFilters(get func(string) string) (*catalog.Filters, error) {
	f := &catalog.Filters{
		Category: strings.TrimSpace(get("category")),
		Gender:   strings.TrimSpace(get("gender")),
		Size:     strings.ToUpper(strings.TrimSpace(get("size"))),
		Color:    strings.TrimSpace(get("color")),
		Brand:    strings.TrimSpace(get("brand")),
		Style:    strings.TrimSpace(get("style")),
	}
	for name, dst := range map[string]**float64{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		raw := get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return nil, badParam(name)
		}
		*dst = &v
	}
	if raw := get("on_sale"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, badParam("on_sale")
		}
		f.OnSale = &v
	}
	return f, nil
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, ok, err := h.catalog.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("product lookup failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "product not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleSizeGuide(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	guide, err := h.catalog.SizeGuide(r.Context(), category)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"guide":    guide,
	})
}

// handleAvailability 查询指定尺码和颜色的库存状态
func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	size := strings.TrimSpace(r.URL.Query().Get("size"))
	color := strings.TrimSpace(r.URL.Query().Get("color"))
	if size == "" || color == "" {
		utils.RespondError(w, http.StatusBadRequest, "size and color are required")
		return
	}
	available, found, err := h.catalog.Availability(r.Context(), chi.URLParam(r, "id"), size, color)
	if err != nil {
		h.logger.Error("availability lookup failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !found {
		utils.RespondError(w, http.StatusNotFound, "product not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"available": available})
}

// handleRecommendations 支持 product_id/category/style/limit 参数
func (h *Handler) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"), recommendLimit)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	products, err := h.catalog.Recommend(r.Context(), catalog.RecommendQuery{
		ProductID: q.Get("product_id"),
		Category:  strings.TrimSpace(q.Get("category")),
		Style:     strings.TrimSpace(q.Get("style")),
		Limit:     limit,
	})
	if err != nil {
		h.logger.Error("recommendations failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "recommendations failed")
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	utils.RespondJSON(w, http.StatusOK, products)
}

func (h *Handler) handleShipping(w http.ResponseWriter, r *http.Request) {
	info, err := h.catalog.Shipping(r.Context())
	if err != nil {
		h.logger.Error("shipping info failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "shipping info unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

func (h *Handler) handlePromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.catalog.Promotions(r.Context())
	if err != nil {
		h.logger.Error("promotions failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "promotions unavailable")
		return
	}
	if promos == nil {
		promos = []catalog.Promotion{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"promotions": promos})
}
