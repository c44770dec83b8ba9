package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"parkspace-backend/internal/domain"
)

// Limits bounds the page size of list endpoints.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

func invalidParam(name, value string) error {
	return fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidArgument, name, value)
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParam("id", raw)
	}
	return id, nil
}

func queryInt(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, raw)
	}
	return v, nil
}

func queryFloat(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalidParam(name, raw)
	}
	return &v, nil
}

func queryBool(q url.Values, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidParam(name, raw)
	}
	return v, nil
}

// page reads limit and offset. An absent limit takes the default, a larger
// one is capped, a negative one is rejected.
func (l Limits) page(q url.Values) (int, int, error) {
	limit, err := queryInt(q, "limit", l.DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(q, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidArgument)
	}
	if limit == 0 {
		limit = l.DefaultLimit
	}
	return min(limit, l.MaxLimit), offset, nil
}

// lotFilter builds a search filter from the query string. Unknown keys are
// ignored and available_only defaults to true.
func (l Limits) lotFilter(q url.Values) (domain.LotFilter, error) {
	var f domain.LotFilter
	var err error

	f.Query = q.Get("location")
	if f.Query == "" {
		f.Query = q.Get("q")
	}
	if f.MinPrice, err = queryFloat(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(q, "max_price"); err != nil {
		return f, err
	}
	for _, raw := range q["features"] {
		for _, feat := range strings.Split(raw, ",") {
			if feat = strings.TrimSpace(feat); feat != "" {
				f.Features = append(f.Features, feat)
			}
		}
	}
	if f.AvailableOnly, err = queryBool(q, "available_only", true); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = l.page(q); err != nil {
		return f, err
	}
	f.Sort = domain.LotSort(strings.ToLower(q.Get("sort")))

	lat, err := queryFloat(q, "lat")
	if err != nil {
		return f, err
	}
	lon, err := queryFloat(q, "lon")
	if err != nil {
		return f, err
	}
	if (lat == nil) != (lon == nil) {
		return f, fmt.Errorf("%w: lat and lon must be given together", domain.ErrInvalidArgument)
	}
	if lat != nil {
		f.Origin = &domain.Coordinates{Latitude: *lat, Longitude: *lon}
		if f.Sort == domain.LotSortDefault {
			f.Sort = domain.LotSortProximity
		}
	}
	if radius, err := queryFloat(q, "radius_km"); err != nil {
		return f, err
	} else if radius != nil {
		f.RadiusKm = *radius
	}
	return f, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.Validationf("malformed request body: %v", err)
	}
	return nil
}
