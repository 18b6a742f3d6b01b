package api

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"socialnet/internal/codec"
	"socialnet/internal/commandlog"
	"socialnet/internal/network"
)

// NetworkService is the service surface the handlers drive
type NetworkService interface {
	AddUser(ctx context.Context, username string) error
	RemoveUser(ctx context.Context, username string) error
	AddFriend(ctx context.Context, user1, user2 string) error
	RemoveFriend(ctx context.Context, user1, user2 string) error

	Users() []string
	FriendsOf(username string) ([]string, error)
	Degree(username string) (int, error)
	ComponentOf(username string) ([]string, error)
	MutualFriends(user1, user2 string) ([]string, error)
	ShortestPath(from, to string) ([]string, error)
	ConnectedComponents() [][]string
	Stats() network.Stats

	SetCentralUser(username string) error
	CentralUser() string

	LogLines() []string
	LoadFromLog(ctx context.Context, path string) (*commandlog.ReplayResult, error)
	ExportLog(path string, mode commandlog.ExportMode) (int, error)
	Snapshot() *codec.Snapshot
	Restore(snapshot *codec.Snapshot) error
	Clear(ctx context.Context)
}

var contentTypes = map[string]string{
	"json":    "application/json",
	"yaml":    "application/yaml",
	"msgpack": "application/msgpack",
	"log":     "text/plain; charset=utf-8",
}

type handler struct {
	svc        NetworkService
	exportPath string
	exportMode commandlog.ExportMode
}

type userRequest struct {
	Username string `json:"username" binding:"required,username"`
}

type friendshipRequest struct {
	User1 string `json:"user1" binding:"required,username"`
	User2 string `json:"user2" binding:"required,username"`
}

type loadRequest struct {
	Path string `json:"path" binding:"required"`
}

type exportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode" binding:"omitempty,oneof=snapshot drain"`
}

func (h *handler) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.svc.Users()})
}

func (h *handler) addUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.AddUser(c.Request.Context(), req.Username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": req.Username})
}

func (h *handler) removeUser(c *gin.Context) {
	if err := h.svc.RemoveUser(c.Request.Context(), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) friendsOf(c *gin.Context) {
	username := c.Param("username")
	friends, err := h.svc.FriendsOf(username)
	if err != nil {
		respondError(c, err)
		return
	}
	degree, err := h.svc.Degree(username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "friends": friends, "degree": degree})
}

func (h *handler) componentOf(c *gin.Context) {
	username := c.Param("username")
	component, err := h.svc.ComponentOf(username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "component": component})
}

func (h *handler) addFriendship(c *gin.Context) {
	var req friendshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.AddFriend(c.Request.Context(), req.User1, req.User2); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user1": req.User1, "user2": req.User2})
}

func (h *handler) removeFriendship(c *gin.Context) {
	var req friendshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.RemoveFriend(c.Request.Context(), req.User1, req.User2); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) mutualFriends(c *gin.Context) {
	user1, user2 := c.Query("user1"), c.Query("user2")
	mutual, err := h.svc.MutualFriends(user1, user2)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user1": user1, "user2": user2, "mutual": mutual})
}

func (h *handler) shortestPath(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	path, err := h.svc.ShortestPath(from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if path == nil {
		path = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"from":      from,
		"to":        to,
		"path":      path,
		"connected": len(path) > 0,
	})
}

func (h *handler) components(c *gin.Context) {
	components := h.svc.ConnectedComponents()
	c.JSON(http.StatusOK, gin.H{"components": components, "count": len(components)})
}

func (h *handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *handler) setCentral(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.SetCentralUser(req.Username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": req.Username})
}

func (h *handler) getCentral(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": h.svc.CentralUser()})
}

func (h *handler) loadLog(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	res, err := h.svc.LoadFromLog(c.Request.Context(), req.Path)
	if errors.Is(err, fs.ErrNotExist) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": "not_found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lines":        res.Lines,
		"applied":      res.Applied,
		"skipped":      res.Skipped,
		"central_user": res.CentralUser,
	})
}

func (h *handler) exportLog(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	path := req.Path
	if path == "" {
		path = h.exportPath
	}
	mode := h.exportMode
	if req.Mode != "" {
		mode, _ = commandlog.ParseExportMode(req.Mode)
	}

	n, err := h.svc.ExportLog(path, mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "mode": mode.String(), "commands": n})
}

func (h *handler) logLines(c *gin.Context) {
	lines := h.svc.LogLines()
	c.JSON(http.StatusOK, gin.H{"commands": lines, "count": len(lines)})
}

func (h *handler) getSnapshot(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	cdc, err := codec.ByFormat(format)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
		return
	}

	var buf bytes.Buffer
	if err := cdc.Export(h.svc.Snapshot(), &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}

func (h *handler) putSnapshot(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	cdc, err := codec.ByFormat(format)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
		return
	}

	snapshot, err := cdc.Parse(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
		return
	}
	if err := h.svc.Restore(snapshot); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Stats())
}

func (h *handler) clear(c *gin.Context) {
	h.svc.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}
