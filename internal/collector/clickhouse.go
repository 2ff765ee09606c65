package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"golang.org/x/time/rate"

	"github.com/ppiankov/clusterpulse/internal/ingest"
	"github.com/ppiankov/clusterpulse/pkg/config"
)

const defaultBatchSize = 10000

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// recordColumns are selected in this order and scanned by processBatch
var recordColumns = []string{
	"cluster_name",
	"cluster_id",
	"state",
	"creation_time",
	"end_time",
	"min_capacity_remaining_gb",
	"min_yarn_memory_available_percent",
	"max_memory_allocated_mb",
	"max_memory_total_mb",
	"max_mr_unhealthy_nodes",
}

// ClickHouseClient pages cluster records out of a ClickHouse table
type ClickHouseClient struct {
	conn    *sql.DB
	config  *config.Config
	limiter *rate.Limiter
	retry   retryConfig
}

// NewClickHouseClient creates a new ClickHouse client
func NewClickHouseClient(cfg *config.Config) (*ClickHouseClient, error) {
	if err := ValidateTableName(cfg.ClickHouseTable); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ClickHouseDSN) == "" {
		return nil, fmt.Errorf("--clickhouse-dsn is required for the clickhouse source")
	}

	// Parse DSN options
	opts, err := clickhouse.ParseDSN(cfg.ClickHouseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ClickHouse DSN: %w", err)
	}

	// Set connection pooling
	opts.MaxOpenConns = 4
	opts.MaxIdleConns = 2
	opts.ConnMaxLifetime = time.Hour

	opts.ReadTimeout = 10 * time.Minute
	opts.DialTimeout = 30 * time.Second

	// Readonly users cannot change settings such as max_execution_time
	opts.Settings = nil

	conn := clickhouse.OpenDB(opts)
	client := newClickHouseClient(conn, cfg)

	pingCtx, cancel := withTotalTimeoutContext(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := executeWithRetry(pingCtx, client.retry, func() error {
		return conn.PingContext(pingCtx)
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if len(opts.Addr) > 0 {
		slog.Debug("connected to ClickHouse", slog.String("addr", opts.Addr[0]))
	}

	return client, nil
}

func newClickHouseClient(conn *sql.DB, cfg *config.Config) *ClickHouseClient {
	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = cfg.RateLimit
	}
	return &ClickHouseClient{
		conn:    conn,
		config:  cfg,
		limiter: rate.NewLimiter(limit, burst),
		retry:   defaultRetryConfig(),
	}
}

// ValidateTableName accepts "table" or "database.table" identifiers
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid ClickHouse table %q: expected [database.]table", name)
	}
	return nil
}

// Collect checks the table schema and fetches every record as one batch
func (c *ClickHouseClient) Collect(ctx context.Context) ([]Batch, error) {
	if err := c.CheckSchema(ctx); err != nil {
		return nil, err
	}
	records, err := c.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}
	return []Batch{{Name: "clickhouse:" + c.config.ClickHouseTable, Records: records}}, nil
}

// CheckSchema verifies the table exposes every selected column
func (c *ClickHouseClient) CheckSchema(ctx context.Context) error {
	query := "DESCRIBE TABLE " + c.config.ClickHouseTable

	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", c.config.ClickHouseTable, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", c.config.ClickHouseTable, err)
	}

	present := make(map[string]string)
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			slog.Debug("failed to scan schema row", slog.String("error", err.Error()))
			continue
		}
		if len(values) >= 2 {
			present[values[0].String] = values[1].String
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to describe %s: %w", c.config.ClickHouseTable, err)
	}

	var missing []string
	for _, col := range recordColumns {
		typ, ok := present[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		slog.Debug("schema column", slog.String("name", col), slog.String("type", typ))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("invalid schema for %s: missing columns %s",
			c.config.ClickHouseTable, strings.Join(missing, ", "))
	}
	return nil
}

// FetchRecords retrieves cluster records with pagination. Each page is rate
// limited and retried on transient errors; QueryTimeout bounds the whole fetch.
func (c *ClickHouseClient) FetchRecords(ctx context.Context) ([]ingest.RawRecord, error) {
	ctx, cancel := withTotalTimeoutContext(ctx, c.config.QueryTimeout)
	defer cancel()

	batchSize := c.config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lookbackDays := int(c.config.LookbackPeriod.Hours() / 24)

	query := "SELECT " + strings.Join(recordColumns, ", ") + " FROM " + c.config.ClickHouseTable
	args := []any{}
	if lookbackDays > 0 {
		query += " WHERE creation_time >= now() - INTERVAL ? DAY"
		args = append(args, lookbackDays)
	}
	query += " ORDER BY creation_time ASC, cluster_id ASC LIMIT ? OFFSET ?"

	var all []ingest.RawRecord
	offset := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := contextError(ctx); ctxErr != nil {
				return nil, fmt.Errorf("query cancelled at offset %d: %w", offset, ctxErr)
			}
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		var batch []ingest.RawRecord
		pageArgs := append(append([]any{}, args...), batchSize, offset)
		err := executeWithRetry(ctx, c.retry, func() error {
			rows, err := c.conn.QueryContext(ctx, query, pageArgs...)
			if err != nil {
				return err
			}
			defer rows.Close()
			batch, err = c.processBatch(rows)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("query failed at offset %d: %w", offset, err)
		}

		if len(batch) == 0 {
			break
		}

		all = append(all, batch...)
		slog.Debug("fetched cluster records", slog.Int("page", len(batch)), slog.Int("total", len(all)))

		// Check max rows limit
		if c.config.MaxRows > 0 && len(all) >= c.config.MaxRows {
			all = all[:c.config.MaxRows]
			slog.Debug("max rows limit reached", slog.Int("max_rows", c.config.MaxRows))
			break
		}

		// Short page means the last page
		if len(batch) < batchSize {
			break
		}

		offset += batchSize
	}

	return all, nil
}

// processBatch converts a page of rows into raw records. Rows that fail to
// scan are skipped.
func (c *ClickHouseClient) processBatch(rows *sql.Rows) ([]ingest.RawRecord, error) {
	var records []ingest.RawRecord
	rowNum := 0
	skippedRows := 0

	for rows.Next() {
		rowNum++
		var name, id, state sql.NullString
		var created, ended sql.NullTime
		var capacity, yarn, allocated, total, unhealthy sql.NullFloat64

		err := rows.Scan(&name, &id, &state, &created, &ended, &capacity, &yarn, &allocated, &total, &unhealthy)
		if err != nil {
			skippedRows++
			if skippedRows == 1 {
				slog.Warn("failed to scan cluster record row",
					slog.Int("row", rowNum),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		records = append(records, ingest.RawRecord{
			ClusterName:                      nullString(name),
			ClusterID:                        nullString(id),
			State:                            nullString(state),
			CreationDateTime:                 nullTime(created),
			EndDateTime:                      nullTime(ended),
			MinCapacityRemainingGB:           nullFloat(capacity),
			MinYARNMemoryAvailablePercentage: nullFloat(yarn),
			MaxMemoryAllocatedMB:             nullFloat(allocated),
			MaxMemoryTotalMB:                 nullFloat(total),
			MaxMRUnhealthyNodes:              nullFloat(unhealthy),
		})
	}

	if skippedRows > 0 {
		slog.Warn("skipped unreadable rows", slog.Int("skipped", skippedRows), slog.Int("total", rowNum))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Close closes the ClickHouse connection
func (c *ClickHouseClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *string {
	if !v.Valid || v.Time.IsZero() {
		return nil
	}
	s := v.Time.UTC().Format(time.RFC3339Nano)
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
