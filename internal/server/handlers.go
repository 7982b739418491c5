package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"multicam/internal/camera"
	"multicam/internal/config"
	"multicam/internal/history"
	"multicam/internal/session"
)

// Handler はAPIエンドポイントの実装
type Handler struct {
	config *config.Config
	repo   history.Repository
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionsResponse はセッション一覧のレスポンス
type SessionsResponse struct {
	Sessions []history.SessionRecord `json:"sessions"`
}

// PhaseInfo はフェーズ表の1行
type PhaseInfo struct {
	Phase      string   `json:"phase"`
	Present    bool     `json:"present"`
	Command    string   `json:"command,omitempty"`
	Script     string   `json:"script,omitempty"`
	Args       []string `json:"args,omitempty"`
	Required   bool     `json:"required"`
	TimeoutSec float64  `json:"timeoutSec"`
}

// PhasesResponse はフェーズ表のレスポンス
type PhasesResponse struct {
	Phases     []PhaseInfo `json:"phases"`
	Ignored    []string    `json:"ignored"`
	Alternates []string    `json:"alternates"`
}

// CameraInfo はカメラ1台の情報
type CameraInfo struct {
	Name   string `json:"name"`
	IP     string `json:"ip"`
	Serial string `json:"serial"`
}

// CamerasResponse はカメラ一覧のレスポンス
type CamerasResponse struct {
	Cameras []CameraInfo `json:"cameras"`
}

// Root はルートパスのハンドラ
func (h *Handler) Root(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(`<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>multicam - 撮影セッション</title>
</head>
<body>
    <h1>multicam 撮影セッション</h1>
    <p>サーバーが正常に起動しています。</p>
    <p>セッション履歴: <a href="/api/sessions">/api/sessions</a></p>
    <p>フェーズ表: <a href="/api/phases">/api/phases</a></p>
    <p>カメラ: <a href="/api/cameras">/api/cameras</a></p>
    <p>ヘルスチェック: <a href="/health">/health</a></p>
</body>
</html>`))
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// ListSessions はセッション一覧取得エンドポイントの実装
func (h *Handler) ListSessions(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, "invalid_limit", "limit は1以上の整数で指定してください")
			return
		}
		limit = n
	}

	sessions, err := h.repo.ListSessions(c.Request.Context(), limit)
	if err != nil {
		log.Printf("セッション一覧の取得に失敗しました: %v", err)
		respondError(c, http.StatusInternalServerError, "history_error", "セッション一覧の取得に失敗しました")
		return
	}
	if sessions == nil {
		sessions = []history.SessionRecord{}
	}

	c.JSON(http.StatusOK, SessionsResponse{Sessions: sessions})
}

// GetSession はセッション詳細取得エンドポイントの実装
func (h *Handler) GetSession(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	record, err := h.repo.GetSession(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrSessionNotFound) {
		respondError(c, http.StatusNotFound, "session_not_found", "指定されたセッションが見つかりません")
		return
	}
	if err != nil {
		log.Printf("セッションの取得に失敗しました: %v", err)
		respondError(c, http.StatusInternalServerError, "history_error", "セッションの取得に失敗しました")
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetPhases はフェーズ表取得エンドポイントの実装
func (h *Handler) GetPhases(c *gin.Context) {
	steps, binding, err := h.config.ResolveSteps(c.Request.Context())
	if err != nil {
		log.Printf("フェーズ表の解決に失敗しました: %v", err)
		respondError(c, http.StatusInternalServerError, "scripts_error", "スクリプトのスキャンに失敗しました")
		return
	}

	resp := PhasesResponse{
		Phases:     make([]PhaseInfo, 0, len(steps)),
		Ignored:    make([]string, 0, len(binding.Ignored)),
		Alternates: make([]string, 0, len(binding.Alternates)),
	}
	for _, step := range steps {
		resp.Phases = append(resp.Phases, phaseInfo(step))
	}
	for _, s := range binding.Ignored {
		resp.Ignored = append(resp.Ignored, s.Name)
	}
	for _, s := range binding.Alternates {
		resp.Alternates = append(resp.Alternates, s.Name)
	}

	c.JSON(http.StatusOK, resp)
}

// GetCameras はカメラ一覧取得エンドポイントの実装
func (h *Handler) GetCameras(c *gin.Context) {
	cameras, err := camera.NewCache(h.config.CameraCachePath(), time.Time{}).Cameras()
	if err != nil {
		log.Printf("カメラキャッシュの読み込みに失敗しました: %v", err)
		respondError(c, http.StatusInternalServerError, "camera_cache_error", "カメラキャッシュの読み込みに失敗しました")
		return
	}

	resp := CamerasResponse{Cameras: make([]CameraInfo, 0, len(cameras))}
	for _, cam := range cameras {
		resp.Cameras = append(resp.Cameras, CameraInfo{
			Name:   cam.Name,
			IP:     cam.IP,
			Serial: cam.Serial(),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetOpenAPI はAPIドキュメントを返す
func (h *Handler) GetOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", OpenAPIDocument())
}

// ヘルパー関数

// historyEnabled は履歴が無効なら 503 を返して false を返す
func (h *Handler) historyEnabled(c *gin.Context) bool {
	if h.repo != nil {
		return true
	}
	respondError(c, http.StatusServiceUnavailable, "history_disabled", "セッション履歴が無効です")
	return false
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func phaseInfo(step session.Step) PhaseInfo {
	return PhaseInfo{
		Phase:      string(step.Phase),
		Present:    step.Present(),
		Command:    step.Executable,
		Script:     step.Script,
		Args:       step.Args,
		Required:   step.Required,
		TimeoutSec: step.Timeout.Seconds(),
	}
}
