package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig tunes how much of the query stream reaches zap.
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// QuietNotFound drops ErrRecordNotFound; lookups by id miss routinely.
	QuietNotFound bool
}

// DefaultGormLoggerConfig logs failures and slow queries only.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// GormLogger routes gorm's logger.Interface onto the context-enriched zap
// logger so queries carry request_id and company_id.
type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *g
	next.cfg.Level = level
	return &next
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	g.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	g.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	g.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (g *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []interface{}) {
	if g.cfg.Level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := FromContext(ctx).Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	if lvl, ok := g.traceLevel(elapsed, err); ok {
		g.query(ctx, lvl, fc, elapsed, err)
	}
}

func (g *GormLogger) traceLevel(elapsed time.Duration, err error) (zapcore.Level, bool) {
	if err != nil && g.cfg.Level >= gormlogger.Error {
		if g.cfg.QuietNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return 0, false
		}
		return zapcore.ErrorLevel, true
	}
	if g.cfg.SlowThreshold > 0 && elapsed > g.cfg.SlowThreshold && g.cfg.Level >= gormlogger.Warn {
		return zapcore.WarnLevel, true
	}
	if g.cfg.Level >= gormlogger.Info {
		return zapcore.DebugLevel, true
	}
	return 0, false
}

// ParamsFilter drops bound values; key hashes and connector credentials
// travel as parameters.
func (g *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (g *GormLogger) query(ctx context.Context, lvl zapcore.Level, fc func() (string, int64), elapsed time.Duration, err error) {
	ce := FromContext(ctx).Check(lvl, "gorm.query")
	if ce == nil {
		return
	}
	sql, rows := fc()
	sql = strings.TrimSpace(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", sql),
		zap.String("operation", operationFromSQL(sql)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if table := tableFromSQL(sql); table != "" {
		fields = append(fields, zap.String("table", table))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

var sqlVerbs = map[string]bool{"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true}

// operationFromSQL skips a leading CTE and reports the statement verb.
func operationFromSQL(sql string) string {
	for _, tok := range strings.Fields(strings.ToUpper(sql)) {
		tok = strings.Trim(tok, "();")
		if sqlVerbs[tok] {
			return tok
		}
	}
	return "UNKNOWN"
}

func tableFromSQL(sql string) string {
	toks := strings.Fields(sql)
	for i := 0; i+1 < len(toks); i++ {
		switch strings.ToUpper(toks[i]) {
		case "FROM", "INTO", "UPDATE":
			return strings.Trim(toks[i+1], "`\"();")
		}
	}
	return ""
}

var _ gormlogger.Interface = (*GormLogger)(nil)
