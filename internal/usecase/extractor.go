package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/internal/repository"
	"github.com/user/product-harvester/pkg/metrics"
)

// Largest value a NUMERIC(10,2) column holds.
const maxStorablePrice = 99999999.99

var currencySymbols = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
	"¥": "JPY",
	"₹": "INR",
}

// ExtractResult is the outcome of one extraction. Err only explains why
// Products is empty; it never fails the run.
type ExtractResult struct {
	Products []entity.ExtractedProduct
	Dropped  int
	Err      error
}

// Extractor turns rendered markup into validated product records with the
// help of an Oracle.
type Extractor struct {
	oracle   repository.Oracle
	maxChars int
	logger   *zap.Logger
}

func NewExtractor(oracle repository.Oracle, maxChars int, logger *zap.Logger) *Extractor {
	if maxChars <= 0 {
		maxChars = 50000
	}
	return &Extractor{oracle: oracle, maxChars: maxChars, logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, markup, pageURL, company string) ExtractResult {
	text := NormalizeMarkup(markup, e.maxChars)
	system, content := BuildPrompt(pageURL, company, text)
	e.logger.Debug("extracting products",
		zap.String("url", pageURL),
		zap.String("oracle", e.oracle.Name()),
		zap.Int("text_chars", len(text)),
	)

	start := time.Now()
	resp, err := e.oracle.Complete(ctx, system, content)
	metrics.OracleRequestDuration.WithLabelValues(e.oracle.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordsDroppedTotal.WithLabelValues("oracle").Inc()
		e.logger.Error("extraction oracle call failed", zap.String("url", pageURL), zap.Error(err))
		return ExtractResult{Err: fmt.Errorf("%w: %v", repository.ErrOracleUnavailable, err)}
	}

	records, err := RecoverJSONArray(resp)
	if err != nil {
		metrics.RecordsDroppedTotal.WithLabelValues("format").Inc()
		e.logger.Warn("could not parse extraction response",
			zap.String("url", pageURL),
			zap.String("response_head", head(resp, 300)),
			zap.Error(err),
		)
		return ExtractResult{Err: err}
	}

	result := ExtractResult{Products: make([]entity.ExtractedProduct, 0, len(records))}
	for i, raw := range records {
		p, err := ValidateRecord(raw)
		if err != nil {
			result.Dropped++
			metrics.RecordsDroppedTotal.WithLabelValues("validation").Inc()
			e.logger.Warn("dropping extracted record", zap.String("url", pageURL), zap.Int("index", i), zap.Error(err))
			continue
		}
		result.Products = append(result.Products, p)
	}
	metrics.ProductsExtractedTotal.Add(float64(len(result.Products)))

	e.logger.Info("products extracted",
		zap.String("url", pageURL),
		zap.Int("products", len(result.Products)),
		zap.Int("dropped", result.Dropped),
	)
	return result
}

// RecoverJSONArray parses resp as a JSON array. When that fails, it retries
// on the span between the first '[' and the last ']', which strips prose or
// code fences around the payload.
func RecoverJSONArray(resp string) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(resp)

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &records); err == nil {
		return records, nil
	}

	start := strings.IndexByte(trimmed, '[')
	end := strings.LastIndexByte(trimmed, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in response", repository.ErrOracleFormat)
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrOracleFormat, err)
	}
	return records, nil
}

// ValidateRecord builds a product from one raw oracle record. A record
// without a name is rejected; every other field degrades to a default.
func ValidateRecord(raw json.RawMessage) (entity.ExtractedProduct, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil || rec == nil {
		return entity.ExtractedProduct{}, fmt.Errorf("%w: record is not an object", repository.ErrRecordValidation)
	}

	name, _ := rec["name"].(string)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return entity.ExtractedProduct{}, fmt.Errorf("%w: missing name", repository.ErrRecordValidation)
	}

	productURL, _ := rec["product_url"].(string)
	return entity.ExtractedProduct{
		Name:       name,
		Price:      ParsePrice(rec["price"]),
		Currency:   NormalizeCurrency(rec["currency"]),
		ImageURLs:  stringSet(rec["image_urls"]),
		ProductURL: strings.TrimSpace(productURL),
	}, nil
}

// ParsePrice reads a price from a JSON number or a display string such as
// "$1,299.00". Anything unparsable, negative or too large to store yields nil.
func ParsePrice(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = t
	case string:
		digits := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, t)
		if digits == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if f < 0 || f > maxStorablePrice || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Round(f*100) / 100
	return &f
}

// NormalizeCurrency returns an upper-case three-letter code, mapping common
// symbols, and falls back to USD.
func NormalizeCurrency(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	s = strings.ToUpper(s)
	if len(s) != 3 {
		return entity.DefaultCurrency
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return entity.DefaultCurrency
		}
	}
	return s
}

func stringSet(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// head returns at most n runes of s.
func head(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
