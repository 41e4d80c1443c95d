package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"maritime-edge/internal/common/errors"
	edgehttp "maritime-edge/internal/common/http"
)

// PostgRESTRepository talks to a Supabase project over its REST gateway.
type PostgRESTRepository struct {
	baseURL    string
	serviceKey string
	httpClient *edgehttp.Client
}

func NewPostgRESTRepository(supabaseURL, serviceRoleKey string, timeout time.Duration) *PostgRESTRepository {
	return &PostgRESTRepository{
		baseURL:    strings.TrimRight(supabaseURL, "/") + "/rest/v1",
		serviceKey: serviceRoleKey,
		httpClient: edgehttp.NewClient(timeout),
	}
}

func (p *PostgRESTRepository) headers(prefer string) map[string]string {
	h := map[string]string{
		"apikey":        p.serviceKey,
		"Authorization": "Bearer " + p.serviceKey,
		"Accept":        "application/json",
	}
	if prefer != "" {
		h["Prefer"] = prefer
	}
	return h
}

// Ping fetches the gateway's OpenAPI root to confirm the project is reachable.
func (p *PostgRESTRepository) Ping(ctx context.Context) error {
	reply, err := p.httpClient.DoJSON(ctx, http.MethodGet, p.baseURL+"/", nil, p.headers(""))
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}
	if !reply.OK() {
		return fmt.Errorf("supabase ping failed: status %d", reply.StatusCode)
	}
	return nil
}

func (p *PostgRESTRepository) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.Filters {
		if f.Value == nil {
			params.Add(f.Column, "is.null")
			continue
		}
		params.Add(f.Column, "eq."+formatValue(f.Value))
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		params.Set("order", q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	endpoint := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(table), params.Encode())
	reply, err := p.httpClient.DoJSON(ctx, http.MethodGet, endpoint, nil, p.headers(""))
	if err != nil {
		return nil, errors.NewDatabaseError("select from "+table, err)
	}
	if !reply.OK() {
		return nil, restError("select from "+table, reply)
	}

	var rows []Row
	if err := json.Unmarshal(reply.Body, &rows); err != nil {
		return nil, errors.NewDatabaseError("select from "+table, err)
	}
	return rows, nil
}

func (p *PostgRESTRepository) Upsert(ctx context.Context, table string, record Row, conflict ...string) (Row, error) {
	if len(record) == 0 {
		return nil, errors.NewDatabaseError("upsert into "+table, fmt.Errorf("empty record"))
	}

	endpoint := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(table))
	prefer := "return=representation"
	if len(conflict) > 0 {
		endpoint += "?on_conflict=" + url.QueryEscape(strings.Join(conflict, ","))
		prefer = "resolution=merge-duplicates,return=representation"
	}

	reply, err := p.httpClient.DoJSON(ctx, http.MethodPost, endpoint, record, p.headers(prefer))
	if err != nil {
		return nil, errors.NewDatabaseError("upsert into "+table, err)
	}
	if !reply.OK() {
		return nil, restError("upsert into "+table, reply)
	}

	var rows []Row
	if err := json.Unmarshal(reply.Body, &rows); err != nil {
		return nil, errors.NewDatabaseError("upsert into "+table, err)
	}
	if len(rows) == 0 {
		return record, nil
	}
	return rows[0], nil
}

func restError(op string, reply *edgehttp.Reply) error {
	return errors.NewDatabaseError(op, fmt.Errorf("postgrest status %d: %s", reply.StatusCode, string(reply.Body)))
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
