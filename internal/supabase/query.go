package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type QueryBuilder struct {
	client *Client
	table  string

	method     string
	columns    []string
	filters    url.Values
	order      []string
	limit      int
	body       interface{}
	onConflict []string
}

// From starts a query on a table of the rest endpoint.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client:  c,
		table:   table,
		method:  http.MethodGet,
		filters: url.Values{},
	}
}

func (q *QueryBuilder) Select(columns ...string) *QueryBuilder {
	q.method = http.MethodGet
	q.columns = columns
	return q
}

// Insert takes a row or a slice of rows.
func (q *QueryBuilder) Insert(rows interface{}) *QueryBuilder {
	q.method = http.MethodPost
	q.body = rows
	return q
}

// Upsert inserts rows, merging into existing ones that collide on the given
// unique columns.
func (q *QueryBuilder) Upsert(rows interface{}, onConflict ...string) *QueryBuilder {
	q.method = http.MethodPost
	q.body = rows
	q.onConflict = onConflict
	return q
}

func (q *QueryBuilder) Update(values interface{}) *QueryBuilder {
	q.method = http.MethodPatch
	q.body = values
	return q
}

func (q *QueryBuilder) Delete() *QueryBuilder {
	q.method = http.MethodDelete
	return q
}

func (q *QueryBuilder) Eq(column string, value interface{}) *QueryBuilder {
	q.filters.Add(column, "eq."+formatValue(value))
	return q
}

func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Execute runs the query. Affected or selected rows are decoded into dest
// when it is not nil.
func (q *QueryBuilder) Execute(ctx context.Context, dest interface{}) error {
	token, err := q.client.bearer(ctx)
	if err != nil {
		return err
	}

	params := url.Values{}
	for k, vs := range q.filters {
		params[k] = append([]string(nil), vs...)
	}
	if len(q.columns) > 0 {
		params.Set("select", strings.Join(q.columns, ","))
	}
	if len(q.order) > 0 {
		params.Set("order", strings.Join(q.order, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}

	req := q.client.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParamsFromValues(params).
		SetError(&APIError{})

	if q.method != http.MethodGet {
		prefer := []string{"return=minimal"}
		if dest != nil {
			prefer[0] = "return=representation"
		}
		if len(q.onConflict) > 0 {
			req.SetQueryParam("on_conflict", strings.Join(q.onConflict, ","))
			prefer = append(prefer, "resolution=merge-duplicates")
		}
		req.SetHeader("Prefer", strings.Join(prefer, ","))
	}
	if q.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(q.body)
	}
	if dest != nil {
		req.SetResult(dest)
	}

	resp, err := req.Execute(q.method, "/rest/v1/"+q.table)
	if err := responseError(resp, err); err != nil {
		return errors.Wrapf(err, "%s %s", strings.ToLower(q.method), q.table)
	}
	return nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(v)
	}
}
