package rpc

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aicell-lab/collectiond/internal/generative"
	"github.com/aicell-lab/collectiond/internal/vectorstore"
)

// callFunc executes one RPC method for the authenticated workspace.
type callFunc func(s *Server, c echo.Context, workspace string) (any, error)

// methods maps "{namespace}/{method}" to its handler.
var methods = map[string]callFunc{
	"collections/create": collectionsCreate,
	"collections/delete": collectionsDelete,
	"collections/list":   collectionsList,
	"collections/get":    collectionsGet,

	"applications/create": applicationsCreate,
	"applications/delete": applicationsDelete,
	"applications/get":    applicationsGet,
	"applications/exists": applicationsExists,
	"applications/list":   applicationsList,

	"sessions/create": sessionsCreate,
	"sessions/delete": sessionsDelete,
	"sessions/list":   sessionsList,

	"data/insert":       dataInsert,
	"data/insert_many":  dataInsertMany,
	"data/update":       dataUpdate,
	"data/delete_by_id": dataDeleteByID,
	"data/exists_by_id": dataExistsByID,
	"data/delete_many":  dataDeleteMany,
	"data/fetch":        dataFetch,

	"query/near_vector": queryNearVector,
	"query/near_text":   queryNearText,
	"query/hybrid":      queryHybrid,

	"generate/near_text": generateNearText,
}

// handleCall dispatches POST /services/{service}/{namespace}/{method}.
func (s *Server) handleCall(c echo.Context) error {
	if c.Param("service") != s.config.ServiceName {
		return echo.NewHTTPError(http.StatusNotFound, "unknown service")
	}

	key := c.Param("namespace") + "/" + c.Param("method")
	fn, ok := methods[key]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown method "+key)
	}

	ws, ok := WorkspaceFrom(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "missing workspace")
	}

	result, err := fn(s, c, ws)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// bind decodes the JSON request body, mapping failures to 400.
func bind[T any](c echo.Context) (*T, error) {
	req := new(T)
	if err := c.Bind(req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return req, nil
}

// OKResponse acknowledges calls with no other payload.
type OKResponse struct {
	Success bool `json:"success"`
}

// ExistsResponse reports a boolean existence check.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// IDResponse returns the identifier of a created object.
type IDResponse struct {
	ID string `json:"id"`
}

// ObjectsResponse wraps a result list of objects.
type ObjectsResponse struct {
	Objects []vectorstore.Object `json:"objects"`
}

func collectionsCreate(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[vectorstore.Settings](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Collections().Create(c.Request().Context(), ws, *req)
}

// CollectionDeleteRequest names the collections to remove.
type CollectionDeleteRequest struct {
	Names []string `json:"names"`
}

func collectionsDelete(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[CollectionDeleteRequest](c)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Collections().Delete(c.Request().Context(), ws, req.Names); err != nil {
		return nil, err
	}
	return OKResponse{Success: true}, nil
}

func collectionsList(s *Server, c echo.Context, ws string) (any, error) {
	return s.registry.Collections().List(c.Request().Context(), ws)
}

// CollectionGetRequest names a single collection.
type CollectionGetRequest struct {
	Name string `json:"name"`
}

func collectionsGet(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[CollectionGetRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Collections().Get(c.Request().Context(), ws, req.Name)
}

// ApplicationRequest identifies an application within a collection.
type ApplicationRequest struct {
	CollectionName string `json:"collection_name"`
	ApplicationID  string `json:"application_id"`
	Description    string `json:"description,omitempty"`
}

func applicationsCreate(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[ApplicationRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Applications().Create(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.Description)
}

func applicationsDelete(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[ApplicationRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Applications().Delete(c.Request().Context(), ws, req.CollectionName, req.ApplicationID)
}

func applicationsGet(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[ApplicationRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Applications().Get(c.Request().Context(), ws, req.CollectionName, req.ApplicationID)
}

func applicationsExists(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[ApplicationRequest](c)
	if err != nil {
		return nil, err
	}
	exists, err := s.registry.Applications().Exists(c.Request().Context(), ws, req.CollectionName, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	return ExistsResponse{Exists: exists}, nil
}

func applicationsList(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[ApplicationRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Applications().ListAll(c.Request().Context(), ws, req.CollectionName)
}

// SessionRequest identifies a session within an application.
type SessionRequest struct {
	CollectionName string `json:"collection_name"`
	ApplicationID  string `json:"application_id"`
	SessionID      string `json:"session_id"`
	Description    string `json:"description,omitempty"`
}

func sessionsCreate(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[SessionRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Sessions().Create(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Description)
}

func sessionsDelete(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[SessionRequest](c)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Sessions().Delete(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID); err != nil {
		return nil, err
	}
	return OKResponse{Success: true}, nil
}

func sessionsList(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[SessionRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Sessions().ListAll(c.Request().Context(), ws, req.CollectionName, req.ApplicationID)
}

// DataRequest is the common scope envelope for data-plane calls.
type DataRequest struct {
	CollectionName string `json:"collection_name"`
	ApplicationID  string `json:"application_id"`
	SessionID      string `json:"session_id,omitempty"`

	Object     *vectorstore.Object  `json:"object,omitempty"`
	Objects    []vectorstore.Object `json:"objects,omitempty"`
	ID         string               `json:"id,omitempty"`
	Properties map[string]any       `json:"properties,omitempty"`
	Filter     vectorstore.Filter   `json:"filter,omitempty"`
	Limit      uint32               `json:"limit,omitempty"`
	Offset     uint64               `json:"offset,omitempty"`
}

func dataInsert(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	var obj vectorstore.Object
	if req.Object != nil {
		obj = *req.Object
	}
	id, err := s.registry.Data().Insert(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, obj)
	if err != nil {
		return nil, err
	}
	return IDResponse{ID: id}, nil
}

func dataInsertMany(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Data().InsertMany(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Objects)
}

func dataUpdate(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Data().Update(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.ID, req.Properties); err != nil {
		return nil, err
	}
	return OKResponse{Success: true}, nil
}

func dataDeleteByID(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Data().DeleteByID(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.ID); err != nil {
		return nil, err
	}
	return OKResponse{Success: true}, nil
}

func dataExistsByID(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	exists, err := s.registry.Data().ExistsByID(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.ID)
	if err != nil {
		return nil, err
	}
	return ExistsResponse{Exists: exists}, nil
}

func dataDeleteMany(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Data().DeleteMany(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Filter)
}

func dataFetch(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[DataRequest](c)
	if err != nil {
		return nil, err
	}
	opts := vectorstore.FetchOptions{Limit: req.Limit, Offset: req.Offset}
	objs, err := s.registry.Data().FetchObjects(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Filter, opts)
	if err != nil {
		return nil, err
	}
	return ObjectsResponse{Objects: objs}, nil
}

// QueryRequest carries search parameters for the query namespace.
type QueryRequest struct {
	CollectionName string `json:"collection_name"`
	ApplicationID  string `json:"application_id"`
	SessionID      string `json:"session_id,omitempty"`

	Query  string             `json:"query,omitempty"`
	Vector []float32          `json:"vector,omitempty"`
	Alpha  float32            `json:"alpha,omitempty"`
	Filter vectorstore.Filter `json:"filter,omitempty"`
	Limit  uint64             `json:"limit,omitempty"`

	Task generative.Task `json:"task,omitempty"`
}

func queryNearVector(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[QueryRequest](c)
	if err != nil {
		return nil, err
	}
	objs, err := s.registry.Data().NearVector(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Vector, req.Filter, req.Limit)
	if err != nil {
		return nil, err
	}
	return ObjectsResponse{Objects: objs}, nil
}

func queryNearText(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[QueryRequest](c)
	if err != nil {
		return nil, err
	}
	objs, err := s.registry.Data().NearText(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Query, req.Filter, req.Limit)
	if err != nil {
		return nil, err
	}
	return ObjectsResponse{Objects: objs}, nil
}

func queryHybrid(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[QueryRequest](c)
	if err != nil {
		return nil, err
	}
	objs, err := s.registry.Data().Hybrid(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Query, req.Vector, req.Alpha, req.Filter, req.Limit)
	if err != nil {
		return nil, err
	}
	return ObjectsResponse{Objects: objs}, nil
}

func generateNearText(s *Server, c echo.Context, ws string) (any, error) {
	req, err := bind[QueryRequest](c)
	if err != nil {
		return nil, err
	}
	return s.registry.Data().GenerateNearText(c.Request().Context(), ws, req.CollectionName, req.ApplicationID, req.SessionID, req.Query, req.Filter, req.Limit, req.Task)
}
