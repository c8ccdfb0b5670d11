package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/objectstore"
	"github.com/fyrsmithlabs/collabd/pkg/auth"
)

// handleCreateObject stores a new object owned by the caller.
func (s *Server) handleCreateObject(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := auth.FromContext(ctx)

	var req CreateObjectRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid create request", zap.Error(err))
		return s.writeError(c, fmt.Errorf("%w: malformed request body", objectstore.ErrInvalidRequest))
	}

	objType, err := objectstore.ParseObjectType(req.Type)
	if err != nil {
		return s.writeError(c, err)
	}
	if len(req.Data) == 0 {
		return s.writeError(c, fmt.Errorf("%w: data field is required", objectstore.ErrInvalidRequest))
	}
	data, err := decodeObjectData(objType, req.Data)
	if err != nil {
		return s.writeError(c, err)
	}

	obj := &objectstore.CollaborationObject{Type: objType, Data: data}
	id, err := s.gate.Create(ctx, identity, obj, req.ID)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, CreateObjectResponse{ID: id})
}

// handleGetObject returns one object the caller may see.
func (s *Server) handleGetObject(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := auth.FromContext(ctx)

	obj, err := s.gate.Get(ctx, identity, c.Param("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, objectPayload(obj))
}

// handleListObjects returns the batch of objects named by the ids query
// parameter. The whole batch must exist and be visible to the caller.
func (s *Server) handleListObjects(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := auth.FromContext(ctx)

	ids := splitIDs(c.QueryParam("ids"))
	if len(ids) == 0 {
		return s.writeError(c, fmt.Errorf("%w: ids query parameter is required", objectstore.ErrInvalidRequest))
	}

	objects, err := s.gate.MultiGet(ctx, identity, ids)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := ObjectListResponse{Objects: make([]ObjectPayload, 0, len(objects))}
	for i := range objects {
		resp.Objects = append(resp.Objects, objectPayload(&objects[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// handleSearchObjects runs a tenant-scoped search as the caller.
func (s *Server) handleSearchObjects(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := auth.FromContext(ctx)

	var req SearchObjectsRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid search request", zap.Error(err))
		return s.writeError(c, fmt.Errorf("%w: malformed request body", objectstore.ErrInvalidRequest))
	}

	storeReq, err := req.toStoreRequest()
	if err != nil {
		return s.writeError(c, err)
	}

	result, err := s.gate.Search(ctx, identity, storeReq)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := SearchObjectsResponse{
		Objects:          make([]ObjectPayload, 0, len(result.Objects)),
		StartIndex:       result.StartIndex,
		TotalHits:        result.TotalHits,
		TotalHitRelation: string(result.Relation),
	}
	for i := range result.Objects {
		resp.Objects = append(resp.Objects, objectPayload(&result.Objects[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// handleDeleteObject removes one object the caller may see.
func (s *Server) handleDeleteObject(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := auth.FromContext(ctx)

	if err := s.gate.Delete(ctx, identity, c.Param("id")); err != nil {
		return s.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// handleDeleteObjects removes a batch of objects with per-id outcomes.
func (s *Server) handleDeleteObjects(c echo.Context) error {
	ctx := c.Request().Context()
	identity, _ := auth.FromContext(ctx)

	var req DeleteObjectsRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid bulk delete request", zap.Error(err))
		return s.writeError(c, fmt.Errorf("%w: malformed request body", objectstore.ErrInvalidRequest))
	}
	if len(req.IDs) == 0 {
		return s.writeError(c, fmt.Errorf("%w: ids field is required", objectstore.ErrInvalidRequest))
	}

	statuses, err := s.gate.DeleteMany(ctx, identity, req.IDs)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := DeleteObjectsResponse{DeleteStatus: make(map[string]string, len(statuses))}
	for id, status := range statuses {
		resp.DeleteStatus[id] = string(status)
	}
	return c.JSON(http.StatusOK, resp)
}

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
