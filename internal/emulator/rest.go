package emulator

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

type (
	table struct {
		name    string
		owner   string
		columns []string
		// privateReads limits selects to the caller's own rows
		privateReads bool
		// insertable reports whether rows can be created through the API
		insertable bool
		decode     func([]byte) (interface{}, error)
	}

	query struct {
		columns []string
		where   squirrel.Eq
		order   []string
		limit   uint64
	}

	restError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details,omitempty"`
		Hint    string `json:"hint,omitempty"`
	}
)

var tables = map[string]*table{
	"users": {
		name:         "users",
		owner:        "email",
		columns:      []string{"id", "email", "first_name", "last_name"},
		privateReads: true,
		decode: func(b []byte) (interface{}, error) {
			rows := make([]User, 0)
			return &rows, json.Unmarshal(b, &rows)
		},
	},
	"links": {
		name:       "links",
		owner:      "user_email",
		columns:    []string{"id", "created_at", "user_email", "link_group", "link"},
		insertable: true,
		decode: func(b []byte) (interface{}, error) {
			rows := make([]Link, 0)
			return &rows, json.Unmarshal(b, &rows)
		},
	},
	"link_templates": {
		name:       "link_templates",
		owner:      "user_email",
		columns:    []string{"id", "created_at", "user_email", "link_group", "template"},
		insertable: true,
		decode: func(b []byte) (interface{}, error) {
			rows := make([]LinkTemplate, 0)
			return &rows, json.Unmarshal(b, &rows)
		},
	},
}

func (t *table) has(column string) bool {
	for _, c := range t.columns {
		if c == column {
			return true
		}
	}
	return false
}

// parseQuery reads select, eq filters, order and limit. Unknown columns are
// rejected so nothing from the request reaches the SQL text unchecked.
func (t *table) parseQuery(c echo.Context) (*query, *restError) {
	q := query{where: squirrel.Eq{}}
	for key, values := range c.QueryParams() {
		switch key {
		case "select":
			if values[0] == "*" || values[0] == "" {
				continue
			}
			for _, col := range strings.Split(values[0], ",") {
				col = strings.TrimSpace(col)
				if !t.has(col) {
					return nil, columnError(t, col)
				}
				q.columns = append(q.columns, col)
			}
		case "order":
			for _, part := range strings.Split(values[0], ",") {
				pieces := strings.SplitN(part, ".", 2)
				if !t.has(pieces[0]) {
					return nil, columnError(t, pieces[0])
				}
				dir := "ASC"
				if len(pieces) == 2 && pieces[1] == "desc" {
					dir = "DESC"
				}
				q.order = append(q.order, pieces[0]+" "+dir)
			}
		case "limit":
			n, err := strconv.ParseUint(values[0], 10, 64)
			if err != nil {
				return nil, &restError{Code: "PGRST103", Message: "invalid limit"}
			}
			q.limit = n
		case "on_conflict", "columns":
		default:
			if !t.has(key) {
				return nil, columnError(t, key)
			}
			for _, v := range values {
				if !strings.HasPrefix(v, "eq.") {
					return nil, &restError{Code: "PGRST100", Message: "unsupported operator in filter " + key}
				}
				// repeated filters on one column can only match when equal
				if prev, ok := q.where[key]; ok && prev != strings.TrimPrefix(v, "eq.") {
					q.where[key] = []string{}
					continue
				}
				q.where[key] = strings.TrimPrefix(v, "eq.")
			}
		}
	}
	if len(q.columns) == 0 {
		q.columns = t.columns
	}
	return &q, nil
}

func (s *Server) Rest(c echo.Context) error {
	if !s.checkAPIKey(c) {
		return c.JSON(http.StatusUnauthorized, restError{Message: "Invalid API key", Hint: "Double check your Supabase `anon` or `service_role` API key."})
	}

	t, ok := tables[c.Param("table")]
	if !ok {
		return c.JSON(http.StatusNotFound, restError{Code: "42P01", Message: "relation \"public." + c.Param("table") + "\" does not exist"})
	}

	if status, ok := s.fault(t.name); ok {
		return c.JSON(status, restError{Code: "XX000", Message: "injected fault"})
	}

	claims, err := s.authenticate(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, restError{Code: "PGRST301", Message: err.Error()})
	}
	owner := ""
	if claims != nil {
		owner = claims.Email
	}

	q, rerr := t.parseQuery(c)
	if rerr != nil {
		return c.JSON(http.StatusBadRequest, rerr)
	}

	method := c.Request().Method
	if method != http.MethodGet || t.privateReads {
		if owner == "" {
			if method == http.MethodGet {
				return c.JSON(http.StatusOK, []interface{}{})
			}
			return c.JSON(http.StatusUnauthorized, restError{Code: "42501", Message: "permission denied for table " + t.name})
		}
		// row level security: only the caller's rows are visible to writes
		q.where[t.owner] = scopeOwner(q.where[t.owner], owner)
	}

	representation := strings.Contains(c.Request().Header.Get("Prefer"), "return=representation")

	switch method {
	case http.MethodGet:
		rows, err := s.selectRows(t, q)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rows)
	case http.MethodPost:
		return s.insert(c, t, owner, representation)
	case http.MethodPatch:
		return s.update(c, t, q, representation)
	case http.MethodDelete:
		return s.delete(c, t, q, representation)
	default:
		return c.NoContent(http.StatusMethodNotAllowed)
	}
}

func (s *Server) selectRows(t *table, q *query) ([]map[string]interface{}, error) {
	b := squirrel.Select(q.columns...).From(t.name).Where(q.where)
	if len(q.order) > 0 {
		b = b.OrderBy(q.order...)
	} else {
		b = b.OrderBy(t.columns[0])
	}
	if q.limit > 0 {
		b = b.Limit(q.limit)
	}
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]map[string]interface{}, 0)
	res := s.db.Raw(sql, args...).Scan(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}
	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
	}
	return rows, nil
}

func (s *Server) insert(c echo.Context, t *table, owner string, representation bool) error {
	if !t.insertable {
		return c.JSON(http.StatusForbidden, restError{Code: "42501", Message: "permission denied for table " + t.name})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	body = asArray(body)

	raw := make([]map[string]interface{}, 0)
	if err := json.Unmarshal(body, &raw); err != nil {
		return c.JSON(http.StatusBadRequest, restError{Code: "PGRST102", Message: "invalid json body"})
	}
	for _, row := range raw {
		for col := range row {
			if !t.has(col) || col == "id" || col == "created_at" {
				return c.JSON(http.StatusBadRequest, columnError(t, col))
			}
		}
		if row[t.owner] != owner {
			return c.JSON(http.StatusForbidden, restError{Code: "42501", Message: "new row violates row-level security policy for table \"" + t.name + "\""})
		}
	}
	if len(raw) == 0 {
		return c.JSON(http.StatusCreated, []interface{}{})
	}

	rows, err := t.decode(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, restError{Code: "PGRST102", Message: err.Error()})
	}

	tx := s.db
	if onConflict := c.QueryParam("on_conflict"); onConflict != "" {
		cols := make([]clause.Column, 0)
		for _, col := range strings.Split(onConflict, ",") {
			if !t.has(col) {
				return c.JSON(http.StatusBadRequest, columnError(t, col))
			}
			cols = append(cols, clause.Column{Name: col})
		}
		updates := make([]string, 0)
		for _, col := range t.columns {
			if col != "id" && col != "created_at" && !strings.Contains(","+onConflict+",", ","+col+",") {
				updates = append(updates, col)
			}
		}
		tx = tx.Clauses(clause.OnConflict{Columns: cols, DoUpdates: clause.AssignmentColumns(updates)})
	}
	if res := tx.Create(rows); res.Error != nil {
		return c.JSON(http.StatusConflict, restError{Code: "23505", Message: res.Error.Error()})
	}

	if !representation {
		return c.NoContent(http.StatusCreated)
	}
	return c.JSON(http.StatusCreated, rows)
}

// update and delete resolve the affected ids first so the representation
// matches the rows that were changed.
func (s *Server) update(c echo.Context, t *table, q *query, representation bool) error {
	values := make(map[string]interface{})
	if err := json.NewDecoder(c.Request().Body).Decode(&values); err != nil {
		return c.JSON(http.StatusBadRequest, restError{Code: "PGRST102", Message: "invalid json body"})
	}
	for col := range values {
		if !t.has(col) || col == "id" || col == t.owner || col == "created_at" {
			return c.JSON(http.StatusBadRequest, columnError(t, col))
		}
	}

	ids, err := s.matchingIDs(t, q)
	if err != nil {
		return err
	}
	if len(ids) > 0 && len(values) > 0 {
		sql, args, err := squirrel.Update(t.name).SetMap(values).Where(squirrel.Eq{"id": ids}).ToSql()
		if err != nil {
			return errors.Wrap(err, "build sql")
		}
		if res := s.db.Exec(sql, args...); res.Error != nil {
			return errors.Wrap(res.Error, "update")
		}
	}

	if !representation {
		return c.NoContent(http.StatusNoContent)
	}
	rows, err := s.selectRows(t, &query{columns: t.columns, where: squirrel.Eq{"id": ids}})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) delete(c echo.Context, t *table, q *query, representation bool) error {
	ids, err := s.matchingIDs(t, q)
	if err != nil {
		return err
	}

	rows, err := s.selectRows(t, &query{columns: t.columns, where: squirrel.Eq{"id": ids}})
	if err != nil {
		return err
	}

	if len(ids) > 0 {
		sql, args, err := squirrel.Delete(t.name).Where(squirrel.Eq{"id": ids}).ToSql()
		if err != nil {
			return errors.Wrap(err, "build sql")
		}
		if res := s.db.Exec(sql, args...); res.Error != nil {
			return errors.Wrap(res.Error, "delete")
		}
	}

	if !representation {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) matchingIDs(t *table, q *query) ([]interface{}, error) {
	rows, err := s.selectRows(t, &query{columns: []string{"id"}, where: q.where, order: q.order, limit: q.limit})
	if err != nil {
		return nil, err
	}
	ids := make([]interface{}, len(rows))
	for i := range rows {
		ids[i] = rows[i]["id"]
	}
	return ids, nil
}

func (s *Server) checkAPIKey(c echo.Context) bool {
	return c.Request().Header.Get("apikey") == s.anonKey
}

// scopeOwner narrows an existing owner filter to the caller.
func scopeOwner(existing interface{}, owner string) interface{} {
	if existing == nil {
		return owner
	}
	if v, ok := existing.(string); ok && v == owner {
		return owner
	}
	return []string{}
}

func asArray(body []byte) []byte {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		return []byte("[" + trimmed + "]")
	}
	return []byte(trimmed)
}

func columnError(t *table, col string) *restError {
	return &restError{
		Code:    "42703",
		Message: "column " + t.name + "." + col + " does not exist",
	}
}
