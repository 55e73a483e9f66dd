package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"HederaDEX-Agent/internal/dex"
	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/internal/task"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// respondError 将统一错误码映射为 HTTP 状态码。
func respondError(w http.ResponseWriter, err error) {
	resp := errorResponse{Code: string(xerrors.CodeOf(err)), Message: err.Error()}
	if xerr, ok := xerrors.From(err); ok {
		resp.Details = xerr.Metadata()
	}
	writeJSON(w, statusFor(xerrors.CodeOf(err)), resp)
}

func statusFor(code xerrors.Code) int {
	switch code {
	case xerrors.CodeInvalidArgument, dex.CodeInvalidParameter, dex.CodeInvalidDecimals, task.CodeJobValidation:
		return http.StatusBadRequest
	case xerrors.CodeNotFound, dex.CodeAddressResolution, task.CodeJobNotFound:
		return http.StatusNotFound
	case xerrors.CodeConflict, task.CodeJobConflict:
		return http.StatusConflict
	case xerrors.CodeInitializationFailure, dex.CodeConfiguration, task.CodeJobPublish:
		return http.StatusServiceUnavailable
	case xerrors.CodeUpstreamFailure, dex.CodeQuoteFailed:
		return http.StatusBadGateway
	case xerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, string(xerrors.CodeInitializationFailure), what+" 未初始化")
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		unavailable(w, "作业服务")
		return
	}
	var req task.SubmitRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(task.CodeJobValidation), "请求体解析失败")
		return
	}
	job, err := s.deps.Jobs.Submit(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		unavailable(w, "作业服务")
		return
	}
	job, err := s.deps.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		unavailable(w, "作业服务")
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}
	jobs, err := s.deps.Jobs.List(r.Context(), opts...)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		unavailable(w, "作业服务")
		return
	}
	opts, err := parseListOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}
	stats, err := s.deps.Jobs.Stats(r.Context(), opts...)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// parseListOptions 解析 limit、offset、status、kind、network、since、until、has_result、order、q。
func parseListOptions(r *http.Request) ([]task.ListOption, error) {
	q := r.URL.Query()
	var opts []task.ListOption

	for _, key := range []string{"limit", "offset"} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "%s 必须是非负整数", key)
		}
		if key == "limit" {
			opts = append(opts, task.WithLimit(n))
		} else {
			opts = append(opts, task.WithOffset(n))
		}
	}
	if statuses := splitList(q["status"]); len(statuses) > 0 {
		list := make([]task.Status, 0, len(statuses))
		for _, v := range statuses {
			if !task.IsValidStatus(task.Status(v)) {
				return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "未知的作业状态 %q", v)
			}
			list = append(list, task.Status(v))
		}
		opts = append(opts, task.WithStatuses(list...))
	}
	if kinds := splitList(q["kind"]); len(kinds) > 0 {
		list := make([]task.Kind, 0, len(kinds))
		for _, v := range kinds {
			if !task.IsValidKind(task.Kind(v)) {
				return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "未知的作业类型 %q", v)
			}
			list = append(list, task.Kind(v))
		}
		opts = append(opts, task.WithKinds(list...))
	}
	if network := q.Get("network"); network != "" {
		opts = append(opts, task.WithNetwork(network))
	}
	for key, apply := range map[string]func(time.Time) task.ListOption{
		"since": task.WithUpdatedSince,
		"until": task.WithUpdatedUntil,
	} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		ts, err := parseTime(raw)
		if err != nil {
			return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "%s 不是合法的时间: %v", key, err)
		}
		opts = append(opts, apply(ts))
	}
	if raw := q.Get("has_result"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "has_result 必须是布尔值")
		}
		opts = append(opts, task.WithResultPresence(v))
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
	case "asc":
		opts = append(opts, task.WithSortOrder(task.SortByUpdatedAsc))
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "order 只能是 asc 或 desc")
	}
	if query := q.Get("q"); query != "" {
		opts = append(opts, task.WithQuery(query))
	}
	return opts, nil
}

// parseTime 接受 RFC3339 或 Unix 秒。
func parseTime(raw string) (time.Time, error) {
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) network(r *http.Request) string {
	if n := strings.TrimSpace(r.URL.Query().Get("network")); n != "" {
		return n
	}
	if s.deps.Dex != nil {
		return s.deps.Dex.DefaultNetwork()
	}
	return ""
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dex == nil {
		unavailable(w, "DEX 服务")
		return
	}
	q := r.URL.Query()
	req := dex.QuoteRequest{
		Network:  s.network(r),
		AssetIn:  dex.AssetRef(q.Get("in")),
		AssetOut: dex.AssetRef(q.Get("out")),
		Amount:   q.Get("amount"),
	}
	if raw := q.Get("fee"); raw != "" {
		fee, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, xerrors.Newf(dex.CodeInvalidParameter, "fee %q 不是合法的费率档位", raw))
			return
		}
		req.Fee = uint32(fee)
	}
	exactOutput, _ := strconv.ParseBool(q.Get("exact_output"))

	var (
		quote dex.Quote
		err   error
	)
	if exactOutput {
		quote, err = s.deps.Dex.QuoteExactOutput(r.Context(), req)
	} else {
		quote, err = s.deps.Dex.Quote(r.Context(), req)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dex == nil {
		unavailable(w, "DEX 服务")
		return
	}
	pos, err := s.deps.Dex.Position(r.Context(), s.network(r), chi.URLParam(r, "tokenSN"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metadata == nil {
		unavailable(w, "DEX 索引客户端")
		return
	}
	pools, err := s.deps.Metadata.Pools(r.Context(), s.network(r))
	if err != nil {
		respondError(w, upstream(err))
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

func (s *Server) handleAccountPositions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metadata == nil {
		unavailable(w, "DEX 索引客户端")
		return
	}
	positions, err := s.deps.Metadata.Positions(r.Context(), s.network(r), chi.URLParam(r, "account"))
	if err != nil {
		respondError(w, upstream(err))
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func upstream(err error) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, "DEX 索引服务超时")
	}
	return xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "DEX 索引服务请求失败")
}

// handleReady 只有在默认网络的 JSON-RPC 节点可达时返回 200。
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chain == nil {
		unavailable(w, "网络注册表")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	snap, err := s.deps.Chain.Snapshot(ctx, s.network(r))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, string(xerrors.CodeUpstreamFailure), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
