package catalog

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ProductCatalog/pkg/kit"
)

const maxBodyBytes = 1 << 20

// Server exposes a Manager over HTTP. Catalog-reading routes answer 503 until
// the catalog holds at least MinProducts products.
type Server struct {
	Catalog     *Manager
	Log         *zap.Logger
	MinProducts int

	// WriteLimit, when set, wraps the mutating routes.
	WriteLimit func(http.Handler) http.Handler
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.NotFound(routeNotFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Route("/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireMinProducts)
			r.Get("/", s.list)
			r.Get("/{id}", s.get)
		})

		r.Group(func(r chi.Router) {
			if s.WriteLimit != nil {
				r.Use(s.WriteLimit)
			}
			r.Post("/", s.create)
			r.Put("/{id}", s.update)
			r.Patch("/{id}", s.update)
			r.Delete("/{id}", s.delete)
		})
	})

	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if n := s.Catalog.Count(); n < s.MinProducts {
		s.logger().Warn("readyz failed", zap.Int("products", n), zap.Int("min_products", s.MinProducts))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", map[string]any{
			"products": n, "min_products": s.MinProducts,
		})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireMinProducts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n := s.Catalog.Count(); n < s.MinProducts {
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not enough products", map[string]any{
				"products": n, "min_products": s.MinProducts,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad limit", map[string]any{"limit": q.Get("limit")})
		return
	}

	sortParam := q.Get("sort")
	order, err := ParseSortOrder(sortParam)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad sort", map[string]any{"sort": sortParam})
		return
	}

	var products []Product
	switch {
	case q.Has("q"):
		products = s.Catalog.Search(r.Context(), q.Get("q"))
		if sortParam != "" {
			products = SortByPrice(products, order)
		}
	case sortParam != "":
		products = s.Catalog.SortByPrice(r.Context(), order)
	default:
		products = s.Catalog.List(r.Context())
	}

	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decodeBody(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	in, err := req.input()
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.Create(r.Context(), in)
	if err != nil {
		s.writeCatalogError(w, r, err, "")
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req productReq
	if err := decodeBody(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	patch, err := req.patch()
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Catalog.Update(r.Context(), id, patch)
	if err != nil {
		s.writeCatalogError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Catalog.Delete(r.Context(), id); err != nil {
		s.writeCatalogError(w, r, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
	case errors.Is(err, ErrDuplicateCode):
		kit.WriteError(w, r, http.StatusConflict, "code already in use", nil)
	case errors.Is(err, ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", map[string]any{"cause": err.Error()})
	default:
		s.logger().Error("catalog operation failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	kit.WriteError(w, r, http.StatusNotFound, "route not found", nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	kit.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
}

// parseLimit accepts an empty value or a non-negative integer; 0 means no cap.
func parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative limit")
	}
	return n, nil
}

// productReq is the body of create and update requests. ID is accepted so
// clients may echo a product back, and is always ignored.
type productReq struct {
	ID          *string          `json:"id"`
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Thumbnail   *string          `json:"thumbnail"`
	Code        *string          `json:"code"`
	Stock       *int64           `json:"stock"`
}

var errMissingField = errors.New("missing field")

func (req productReq) input() (ProductInput, error) {
	switch {
	case req.Title == nil:
		return ProductInput{}, errors.Wrap(errMissingField, "title")
	case req.Code == nil:
		return ProductInput{}, errors.Wrap(errMissingField, "code")
	case req.Price == nil:
		return ProductInput{}, errors.Wrap(errMissingField, "price")
	case req.Stock == nil:
		return ProductInput{}, errors.Wrap(errMissingField, "stock")
	}
	if err := req.validate(); err != nil {
		return ProductInput{}, err
	}

	return ProductInput{
		Title:       *req.Title,
		Description: deref(req.Description),
		Price:       *req.Price,
		Thumbnail:   deref(req.Thumbnail),
		Code:        *req.Code,
		Stock:       *req.Stock,
	}, nil
}

func (req productReq) patch() (Patch, error) {
	if err := req.validate(); err != nil {
		return Patch{}, err
	}
	p := Patch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Thumbnail:   req.Thumbnail,
		Code:        req.Code,
		Stock:       req.Stock,
	}
	if p.Empty() {
		return Patch{}, errors.New("no fields to update")
	}
	return p, nil
}

func (req productReq) validate() error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return errors.New("title must not be empty")
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) == "" {
		return errors.New("code must not be empty")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
