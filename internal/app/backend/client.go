// Package backend 把学习记录提交给远端 REST 服务
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrRejected 后端返回了 4xx，重试没有意义
var ErrRejected = errors.New("backend rejected record")

// Record 对应后端 POST /registros 的请求体
type Record struct {
	SubjectID        int64     `json:"materiaId"`
	TopicID          *int64    `json:"topicoId"`
	ExamID           *int64    `json:"concursoId"`
	StudyTypeID      *int64    `json:"tipoEstudoId"`
	StartedAt        time.Time `json:"dataInicio"`
	Seconds          int64     `json:"segundos"`
	QuestionsDone    int       `json:"questoesFeitas"`
	QuestionsCorrect int       `json:"questoesCertas"`
	CountInCycle     bool      `json:"contarHorasNoCiclo"`
	Notes            string    `json:"anotacoes,omitempty"`
}

type created struct {
	ID *int64 `json:"id"`
}

// Client 为空 BaseURL 时 Submit 直接返回，不发请求
type Client struct {
	BaseURL string
	Token   string
	http    *retryablehttp.Client
}

func New(baseURL, token string, retries int) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = retries
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = nil
	return &Client{BaseURL: baseURL, Token: token, http: hc}
}

// Enabled 是否配置了远端
func (c *Client) Enabled() bool { return c != nil && c.BaseURL != "" }

// Submit 提交一条记录，返回后端生成的 id（如果有）
func (c *Client) Submit(ctx context.Context, rec Record) (*int64, error) {
	if !c.Enabled() {
		return nil, nil
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/registros", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit record: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("submit record: status %d", resp.StatusCode)
	}

	var out created
	if len(raw) > 0 && json.Unmarshal(raw, &out) == nil {
		return out.ID, nil
	}
	return nil, nil
}
