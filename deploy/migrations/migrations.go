package migrations

import "embed"

// Files 暴露资产注册表的 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
