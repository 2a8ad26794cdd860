package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/multistore/internal/inspector"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	s.mu.Lock()
	stores := len(s.registry.Names())
	s.mu.Unlock()

	return c.JSON(http.StatusOK, StatusResponse{
		Status:    "ok",
		Version:   s.config.Version,
		Stores:    stores,
		Inspector: s.inspectedName(),
	})
}

func (s *Server) handleListStores(c echo.Context) error {
	s.mu.Lock()
	names := s.registry.Names()
	s.mu.Unlock()

	return c.JSON(http.StatusOK, StoreListResponse{
		Stores:    names,
		Inspector: s.inspectedName(),
	})
}

func (s *Server) handleRegisterStore(c echo.Context) error {
	var req RegisterStoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := registry.ValidateName(req.Name); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Register(req.Name, req.Options) {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("store %q is already registered", req.Name))
	}

	// Build the store now so bad options are reported to the caller instead
	// of surfacing on first use.
	st, err := s.registry.GetStore(req.Name)
	if err != nil {
		s.registry.Unregister(req.Name)
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid store options: %v", err))
	}

	return c.JSON(http.StatusCreated, st.Snapshot(c.Request().Context()))
}

func (s *Server) handleGetStore(c echo.Context) error {
	st, err := s.lookup(c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st.Snapshot(c.Request().Context()))
}

func (s *Server) handleUnregisterStore(c echo.Context) error {
	name := c.Param("name")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.IsRegistered(name) {
		return notRegistered(name)
	}

	// The inspector only ever holds stores it resolved through the
	// registry, so a matching name means the store was already built.
	inspected := false
	if current := s.inspector.Store(); current != nil && current.Name() == name {
		if st, err := s.registry.GetStore(name); err == nil && st == current {
			inspected = true
		}
	}

	s.registry.Unregister(name)

	if inspected {
		if err := s.registry.SwitchInspectorStore(""); err != nil {
			s.logger.Warn("failed to reset inspector to default store", zap.Error(err))
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAddDocuments(c echo.Context) error {
	var req AddDocumentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	st, err := s.lookup(c.Param("name"))
	if err != nil {
		return err
	}

	ids, err := st.AddDocuments(c.Request().Context(), req.Collection, req.Documents)
	if err != nil {
		return s.storeError(err)
	}
	return c.JSON(http.StatusCreated, AddDocumentsResponse{IDs: ids})
}

func (s *Server) handleDeleteDocuments(c echo.Context) error {
	st, err := s.lookup(c.Param("name"))
	if err != nil {
		return err
	}

	ids := c.QueryParams()["id"]
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one id query parameter is required")
	}

	if err := st.DeleteDocuments(c.Request().Context(), c.QueryParam("collection"), ids); err != nil {
		return s.storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	st, err := s.lookup(c.Param("name"))
	if err != nil {
		return err
	}

	results, err := st.Query(c.Request().Context(), req.Collection, req.Query)
	if err != nil {
		return s.storeError(err)
	}
	return c.JSON(http.StatusOK, QueryResponse{Results: results})
}

func (s *Server) handleGetInspector(c echo.Context) error {
	snap, err := s.inspector.Snapshot(c.Request().Context())
	if errors.Is(err, inspector.ErrNoStore) {
		return echo.NewHTTPError(http.StatusNotFound, "inspector has no store")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to inspect store")
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSwitchInspector(c echo.Context) error {
	var req SwitchInspectorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	if req.Name != "" && !s.registry.IsRegistered(req.Name) {
		s.mu.Unlock()
		return notRegistered(req.Name)
	}
	err := s.registry.SwitchInspectorStore(req.Name)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("inspector switch failed", zap.String("store", req.Name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to switch inspector")
	}
	return s.handleGetInspector(c)
}

// lookup resolves a registered store, building it on first use.
func (s *Server) lookup(name string) (*store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.IsRegistered(name) {
		return nil, notRegistered(name)
	}
	st, err := s.registry.GetStore(name)
	if err != nil {
		s.logger.Error("store resolution failed", zap.String("store", name), zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve store")
	}
	return st, nil
}

func (s *Server) inspectedName() string {
	if st := s.inspector.Store(); st != nil {
		return st.Name()
	}
	return ""
}

func (s *Server) storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrCollectionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrStoreClosed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrEmptyDocuments),
		errors.Is(err, store.ErrMissingEmbedding),
		errors.Is(err, store.ErrDimensionMismatch),
		errors.Is(err, store.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store operation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "store operation failed")
	}
}

func notRegistered(name string) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("store %q is not registered", name))
}
