package task

import (
	"slices"
	"sort"
	"strings"
	"time"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SortOrder 决定列表按 UpdatedAt 的排序方向。
type SortOrder int

const (
	// SortByUpdatedDesc 最近更新的作业在前，是默认顺序。
	SortByUpdatedDesc SortOrder = iota
	// SortByUpdatedAsc 最早更新的作业在前。
	SortByUpdatedAsc
)

// ListOptions 描述作业查询条件。零值表示不过滤，UpdatedGTE/UpdatedLTE 为 Unix 秒且包含边界。
type ListOptions struct {
	Limit      int
	Offset     int
	Statuses   []Status
	Kinds      []Kind
	Network    string
	UpdatedGTE int64
	UpdatedLTE int64
	HasResult  *bool
	Order      SortOrder
	Query      string
}

// ListOption 修改 ListOptions。
type ListOption func(*ListOptions)

func WithLimit(limit int) ListOption   { return func(o *ListOptions) { o.Limit = limit } }
func WithOffset(offset int) ListOption { return func(o *ListOptions) { o.Offset = offset } }

// WithStatuses 只保留给定状态的作业，未知状态被忽略。
func WithStatuses(statuses ...Status) ListOption {
	return func(o *ListOptions) { o.Statuses = append(o.Statuses[:0], statuses...) }
}

// WithKinds 只保留给定操作类型的作业，未知类型被忽略。
func WithKinds(kinds ...Kind) ListOption {
	return func(o *ListOptions) { o.Kinds = append(o.Kinds[:0], kinds...) }
}

// WithNetwork 只保留目标网络匹配的作业，比较时忽略大小写。
func WithNetwork(network string) ListOption {
	return func(o *ListOptions) { o.Network = network }
}

func WithUpdatedSince(ts time.Time) ListOption {
	return func(o *ListOptions) { o.UpdatedGTE = unixOrZero(ts) }
}

func WithUpdatedUntil(ts time.Time) ListOption {
	return func(o *ListOptions) { o.UpdatedLTE = unixOrZero(ts) }
}

// WithResultPresence 按是否已有执行结果过滤。
func WithResultPresence(hasResult bool) ListOption {
	return func(o *ListOptions) { o.HasResult = &hasResult }
}

func WithSortOrder(order SortOrder) ListOption {
	return func(o *ListOptions) { o.Order = order }
}

// WithQuery 在作业 ID、请求体与错误信息中做不区分大小写的子串匹配。
func WithQuery(query string) ListOption {
	return func(o *ListOptions) { o.Query = query }
}

func unixOrZero(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.Unix()
}

func buildListOptions(opts []ListOption) ListOptions {
	var options ListOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	options.applyDefaults()
	return options
}

// applyDefaults 限制分页范围并规范化过滤条件，可重复调用。
func (o *ListOptions) applyDefaults() {
	switch {
	case o.Limit <= 0:
		o.Limit = defaultListLimit
	case o.Limit > maxListLimit:
		o.Limit = maxListLimit
	}
	o.Offset = max(o.Offset, 0)
	o.Statuses = uniqueValid(o.Statuses, IsValidStatus)
	o.Kinds = uniqueValid(o.Kinds, IsValidKind)
	o.Network = strings.ToLower(strings.TrimSpace(o.Network))
	if o.Order != SortByUpdatedAsc {
		o.Order = SortByUpdatedDesc
	}
	o.Query = strings.ToLower(strings.TrimSpace(o.Query))
}

func uniqueValid[T comparable](in []T, valid func(T) bool) []T {
	var out []T
	for _, v := range in {
		if valid(v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Matches 报告作业是否满足全部过滤条件。调用前需已执行 applyDefaults。
func (o ListOptions) Matches(job *Job) bool {
	switch {
	case len(o.Statuses) > 0 && !slices.Contains(o.Statuses, job.Status):
		return false
	case len(o.Kinds) > 0 && !slices.Contains(o.Kinds, job.Kind):
		return false
	case o.Network != "" && job.Network != o.Network:
		return false
	case o.UpdatedGTE > 0 && job.UpdatedAt < o.UpdatedGTE:
		return false
	case o.UpdatedLTE > 0 && job.UpdatedAt > o.UpdatedLTE:
		return false
	case o.HasResult != nil && (len(job.Result) > 0) != *o.HasResult:
		return false
	}
	if o.Query == "" {
		return true
	}
	for _, field := range []string{job.ID, string(job.Payload), job.LastError} {
		if strings.Contains(strings.ToLower(field), o.Query) {
			return true
		}
	}
	return false
}

// sortAndPage 按 UpdatedAt、CreatedAt、ID 排序后截取当前页。
func (o ListOptions) sortAndPage(jobs []*Job) []*Job {
	asc := o.Order == SortByUpdatedAsc
	sort.Slice(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		switch {
		case a.UpdatedAt != b.UpdatedAt:
			return (a.UpdatedAt < b.UpdatedAt) == asc
		case a.CreatedAt != b.CreatedAt:
			return (a.CreatedAt < b.CreatedAt) == asc
		default:
			return a.ID < b.ID
		}
	})
	if o.Offset >= len(jobs) {
		return []*Job{}
	}
	jobs = jobs[o.Offset:]
	if len(jobs) > o.Limit {
		jobs = jobs[:o.Limit]
	}
	return jobs
}
