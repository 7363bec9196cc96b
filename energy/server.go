package energy

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server wires the HTTP API over one Store.
type Server struct {
	store *Store
	log   *zap.Logger
	hub   *eventHub
}

func NewServer(store *Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, log: logger, hub: newEventHub(logger)}
}

// Router builds the gin handler.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", s.handleHealth)
	r.POST("/api/upload", s.handleUpload)
	r.GET("/api/files", s.handleFiles)
	r.GET("/api/records", s.handleRecords)
	r.GET("/ws", s.handleWS)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUpload stores one multipart file. Duplicate content answers 409
// with the path of the already-stored copy; only real write failures are
// a 500.
func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read upload"})
		return
	}

	res, err := s.store.Put(content, fileHeader.Filename)
	var dup *DuplicateError
	if errors.As(err, &dup) {
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate", "existingPath": dup.ExistingPath})
		return
	}
	if err != nil {
		s.log.Error("upload failed", zap.String("name", fileHeader.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage write failed"})
		return
	}

	s.hub.broadcast(UploadEvent{
		Type:           "upload",
		MeterID:        res.MeterID,
		StoredFilename: res.StoredName,
		Digest:         res.Digest,
	})
	c.JSON(http.StatusOK, gin.H{"meterId": res.MeterID, "storedFilename": res.StoredName})
}

// handleFiles returns every stored file with its content. A store that
// cannot be read yields an empty list so clients keep working offline.
func (s *Server) handleFiles(c *gin.Context) {
	files, err := s.store.List()
	if err != nil {
		s.log.Warn("listing store failed", zap.Error(err))
		c.JSON(http.StatusOK, []StoredFile{})
		return
	}
	c.JSON(http.StatusOK, files)
}

// handleRecords re-hydrates the record set from the store and applies the
// requested view. Query params: view=meter|members|total, meter=<id>,
// date=YYYY-MM-DD.
func (s *Server) handleRecords(c *gin.Context) {
	files, err := s.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read store"})
		return
	}
	sources := make([]SourceFile, 0, len(files))
	for _, f := range files {
		sources = append(sources, BytesSource(f.Name, []byte(f.Content)))
	}
	batch := IngestBatch(sources, nil)

	sel := ViewSelector{
		Kind:  c.DefaultQuery("view", ViewMembers),
		Meter: c.Query("meter"),
		Date:  c.Query("date"),
	}
	if sel.Kind == ViewMeter && sel.Meter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "view=meter requires meter="})
		return
	}
	view := ApplyView(batch.Records, batch.Summary.CoopID, sel)
	totalIn, totalOut := ViewTotals(view)
	c.JSON(http.StatusOK, gin.H{
		"records":    view,
		"meters":     batch.Meters,
		"summary":    batch.Summary,
		"viewTotals": gin.H{"consumption": totalIn, "production": totalOut},
		"errors":     batch.Errors,
	})
}

// handleWS upgrades the connection and parks it in the hub until the
// peer goes away.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.add(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.remove(conn)
			return
		}
	}
}
