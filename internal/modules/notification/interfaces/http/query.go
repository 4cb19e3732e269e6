package http

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
)

const dateOnly = "2006-01-02"

type listQuery struct {
	Filter  domain.Filter
	Page    domain.Page
	GroupBy *domain.GroupingRules
}

func parseListQuery(q url.Values) (listQuery, error) {
	var lq listQuery

	if t := q.Get("type"); t != "" {
		lq.Filter.Type = domain.Type(t)
		if err := domain.ValidateType(lq.Filter.Type); err != nil {
			return lq, err
		}
	}
	if p := q.Get("priority"); p != "" {
		lq.Filter.Priority = domain.Priority(p)
		if err := domain.ValidatePriority(lq.Filter.Priority); err != nil {
			return lq, err
		}
	}
	if v := q.Get("isRead"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return lq, domain.NewValidationError("isRead", "must be true or false")
		}
		lq.Filter.IsRead = &b
	}

	var err error
	if lq.Filter.StartDate, err = parseTime(q, "startDate"); err != nil {
		return lq, err
	}
	if lq.Filter.EndDate, err = parseTime(q, "endDate"); err != nil {
		return lq, err
	}

	page, err := parseInt(q, "page", 1)
	if err != nil {
		return lq, err
	}
	if page > domain.MaxPageNumber {
		return lq, domain.NewValidationError("page", fmt.Sprintf("must be at most %d", domain.MaxPageNumber))
	}
	limit, err := parseInt(q, "limit", domain.DefaultPageLimit)
	if err != nil {
		return lq, err
	}
	lq.Page = domain.NewPage(page, limit)

	switch q.Get("groupBy") {
	case "":
	case "type":
		lq.GroupBy = &domain.GroupingRules{ByType: true}
	case "priority":
		lq.GroupBy = &domain.GroupingRules{ByPriority: true}
	case "group":
		lq.GroupBy = &domain.GroupingRules{}
	default:
		return lq, domain.NewValidationError("groupBy", "must be one of [type priority group]")
	}
	return lq, nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, dateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(key, "must be an RFC 3339 timestamp or YYYY-MM-DD")
}

func parseInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return n, nil
}
