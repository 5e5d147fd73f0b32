package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// buildLikeCondition 构建多列 OR LIKE 条件，并返回参数数量。
func buildLikeCondition(db *gorm.DB, columns ...string) (string, int) {
	return buildLikeConditionByDialect(dbDialectName(db), columns...)
}

func buildLikeConditionByDialect(dialect string, columns ...string) (string, int) {
	parts := make([]string, 0, len(columns))
	operator := likeOperatorByDialect(dialect)
	suffix := ""
	if operator == "LIKE" {
		// sqlite 的 LIKE 没有默认转义符
		suffix = ` ESCAPE '\'`
	}
	for _, column := range columns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s ?%s", trimmed, operator, suffix))
	}
	return strings.Join(parts, " OR "), len(parts)
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// dayExprByDialect 按天分组的表达式，结果统一为 YYYY-MM-DD 文本。
func dayExprByDialect(dialect, column string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD')", column)
	default:
		return fmt.Sprintf("CAST(date(%s) AS TEXT)", column)
	}
}

// escapeLike 转义 LIKE 通配符并包裹 %。
func escapeLike(keyword string) string {
	replacer := strings.NewReplacer("%", "\\%", "_", "\\_")
	return "%" + replacer.Replace(strings.TrimSpace(keyword)) + "%"
}

// repeatLikeArgs 生成重复的 LIKE 参数列表。
func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, like)
	}
	return args
}
