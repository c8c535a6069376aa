package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"retail-sales/logger"
	"retail-sales/metrics"
	"retail-sales/models"
)

type SalesService struct {
	store          Store
	fetchCap       int
	tagSampleLimit int
	log            logger.Logger
}

func NewSalesService(store Store, fetchCap, tagSampleLimit int, log logger.Logger) *SalesService {
	return &SalesService{
		store:          store,
		fetchCap:       fetchCap,
		tagSampleLimit: tagSampleLimit,
		log:            log,
	}
}

// GetSales returns one page of the filtered set plus totals over the whole set.
// Store errors are returned as is; nothing is substituted for a failed query.
func (s *SalesService) GetSales(ctx context.Context, req models.FilterRequest) (*models.ResultPage, error) {
	page, size := NormalizePage(req.Page, req.PageSize)
	if size > s.fetchCap {
		size = s.fetchCap
	}

	if err := s.store.Ping(ctx); err != nil {
		metrics.StoreErrors.WithLabelValues("ping").Inc()
		return nil, err
	}

	q, def := BuildQuery(req)
	if def.Active() {
		return s.postFiltered(ctx, q, def, page, size)
	}
	return s.storePaged(ctx, q, page, size)
}

func (s *SalesService) postFiltered(ctx context.Context, q models.Query, def Deferred, page, size int) (*models.ResultPage, error) {
	metrics.SalesQueries.WithLabelValues(metrics.ModePostFiltered).Inc()

	q.Skip = 0
	q.Limit = s.fetchCap
	candidates, err := s.store.Find(ctx, q)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("find").Inc()
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	metrics.PostFilterCandidates.Observe(float64(len(candidates)))
	if len(candidates) >= s.fetchCap {
		s.log.Warn("candidate fetch hit cap, results may be incomplete", map[string]interface{}{
			"fetch_cap": s.fetchCap,
		})
	}

	filtered := ApplyDeferred(candidates, def)
	data, pagination := Paginate(filtered, page, size)
	return &models.ResultPage{
		Data:       data,
		Pagination: pagination,
		Summary:    Summarize(filtered),
	}, nil
}

func (s *SalesService) storePaged(ctx context.Context, q models.Query, page, size int) (*models.ResultPage, error) {
	metrics.SalesQueries.WithLabelValues(metrics.ModeStorePaged).Inc()

	totals, err := s.store.Totals(ctx, q)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("totals").Inc()
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}

	skip, ok := Offset(page, size)
	q.Skip = skip
	q.Limit = size
	data := []models.SalesRecord{}
	if ok && q.Skip < totals.Count {
		data, err = s.store.Find(ctx, q)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("find").Inc()
			return nil, fmt.Errorf("fetch page: %w", err)
		}
	}

	return &models.ResultPage{
		Data:       data,
		Pagination: PageInfo(totals.Count, page, size),
		Summary:    SummaryFromTotals(totals),
	}, nil
}

// FilterOptions degrades to empty lists on any store failure.
func (s *SalesService) FilterOptions(ctx context.Context) models.FilterOptions {
	opts, err := s.LoadFilterOptions(ctx)
	if err != nil {
		s.log.Warn("filter options unavailable, returning empty lists", map[string]interface{}{
			"error": err,
		})
		return models.EmptyFilterOptions()
	}
	return opts
}

// LoadFilterOptions resolves every facet concurrently and fails if any lookup fails.
func (s *SalesService) LoadFilterOptions(ctx context.Context) (models.FilterOptions, error) {
	if err := s.store.Ping(ctx); err != nil {
		metrics.StoreErrors.WithLabelValues("ping").Inc()
		return models.FilterOptions{}, err
	}

	opts := models.EmptyFilterOptions()
	g, gctx := errgroup.WithContext(ctx)

	distinct := func(field models.Field, dst *[]string) {
		g.Go(func() error {
			values, err := s.store.Distinct(gctx, field)
			if err != nil {
				metrics.StoreErrors.WithLabelValues("distinct").Inc()
				return fmt.Errorf("distinct %s: %w", field, err)
			}
			*dst = cleanSorted(values)
			return nil
		})
	}
	distinct(models.FieldCustomerRegion, &opts.Regions)
	distinct(models.FieldGender, &opts.Genders)
	distinct(models.FieldProductCategory, &opts.Categories)
	distinct(models.FieldPaymentMethod, &opts.PaymentMethods)

	g.Go(func() error {
		sample, err := s.store.SampleTags(gctx, s.tagSampleLimit)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("sample_tags").Inc()
			return fmt.Errorf("sample tags: %w", err)
		}
		opts.Tags = unionTags(sample)
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.FilterOptions{}, err
	}
	return opts, nil
}

func cleanSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func unionTags(sample []models.Tags) []string {
	var all []string
	for _, tags := range sample {
		all = append(all, tags...)
	}
	return cleanSorted(all)
}
