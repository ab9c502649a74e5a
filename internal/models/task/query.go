package task

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

var ErrInvalidKeyword = errors.New("keyword must be valid UTF-8")

// Page задаёт параметры пагинации.
type Page struct {
	Page  int
	Limit int
}

// NewPage заменяет значения меньше единицы на 1. Верхней границы у limit нет:
// pages всегда равно ceil(total/limit) для запрошенного limit.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return Page{Page: page, Limit: limit}
}

// Offset насыщается на math.MaxInt вместо переполнения.
func (p Page) Offset() int {
	if p.Limit > 0 && p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Pages считает количество страниц: ceil(total/limit).
func (p Page) Pages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

type PageResult struct {
	Tasks []*Task
	Total int
	Page  int
	Limit int
	Pages int
}

// Filter - условия поиска, все заданные условия объединяются через AND.
type Filter struct {
	Status    *Status
	Priority  *Priority
	StartDate *time.Time
	EndDate   *time.Time
	Keyword   string
}

// Validate отклоняет ключевое слово, из которого нельзя собрать шаблон.
func (f Filter) Validate() error {
	if !utf8.ValidString(f.Keyword) {
		return ErrInvalidKeyword
	}
	return nil
}

// Matcher используется хранилищами без собственного языка запросов.
// Шаблон ключевого слова компилируется один раз на весь поиск.
func (f Filter) Matcher() (func(t *Task) bool, error) {
	var pattern *regexp.Regexp
	if f.Keyword != "" {
		var err error
		if pattern, err = f.KeywordPattern(); err != nil {
			return nil, err
		}
	}

	return func(t *Task) bool {
		if f.Status != nil && t.Status != *f.Status {
			return false
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			return false
		}
		if f.StartDate != nil && t.Start.Before(*f.StartDate) {
			return false
		}
		if f.EndDate != nil && t.Finish.After(*f.EndDate) {
			return false
		}
		return pattern == nil || pattern.MatchString(t.Title)
	}, nil
}

// KeywordPattern экранирует спецсимволы: пользовательский ввод не должен
// превращаться в произвольное регулярное выражение.
func (f Filter) KeywordPattern() (*regexp.Regexp, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return regexp.Compile("(?i)" + regexp.QuoteMeta(f.Keyword))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// KeywordLike возвращает шаблон для ILIKE ... ESCAPE '\'.
func (f Filter) KeywordLike() string {
	return "%" + likeEscaper.Replace(f.Keyword) + "%"
}
