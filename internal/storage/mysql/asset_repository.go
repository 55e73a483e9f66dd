package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AssetRecord 是 asset_addresses 表中的一行。
type AssetRecord struct {
	Network   string
	AssetID   string
	Symbol    string
	Address   common.Address
	Decimals  *int
	UpdatedAt int64
}

// AssetRepository 读写链下索引的资产地址映射，实现 dex.AssetRegistry。
type AssetRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenAssetRepository 建立连接池并执行迁移。
func OpenAssetRepository(ctx context.Context, cfg Config) (*AssetRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db, embeddedMigrations); err != nil {
		db.Close()
		return nil, err
	}
	return NewAssetRepository(db), nil
}

// NewAssetRepository 基于已有连接创建仓库，不执行迁移。
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db, now: time.Now}
}

func normalizeAssetID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup 返回资产地址；没有记录时 found 为 false。
func (r *AssetRepository) Lookup(ctx context.Context, network, assetID string) (common.Address, bool, error) {
	var hex string
	err := r.db.QueryRowContext(ctx, `SELECT address FROM asset_addresses WHERE network = ? AND asset_id = ?`,
		network, normalizeAssetID(assetID)).Scan(&hex)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Address{}, false, nil
	}
	if err != nil {
		return common.Address{}, false, fmt.Errorf("查询资产地址失败: %w", err)
	}
	if !common.IsHexAddress(hex) {
		return common.Address{}, false, fmt.Errorf("资产 %s 的地址 %q 无效", assetID, hex)
	}
	return common.HexToAddress(hex), true, nil
}

// Upsert 写入或覆盖一条资产映射。
func (r *AssetRepository) Upsert(ctx context.Context, record AssetRecord) error {
	if strings.TrimSpace(record.Network) == "" || strings.TrimSpace(record.AssetID) == "" {
		return fmt.Errorf("network 与 asset_id 不能为空")
	}
	if record.Address == (common.Address{}) {
		return fmt.Errorf("资产 %s 缺少地址", record.AssetID)
	}
	if record.UpdatedAt == 0 {
		record.UpdatedAt = r.now().Unix()
	}
	var decimals any
	if record.Decimals != nil {
		decimals = int64(*record.Decimals)
	}
	const stmt = `INSERT INTO asset_addresses (network, asset_id, symbol, address, decimals, updated_at)
    VALUES (?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE symbol = VALUES(symbol), address = VALUES(address), decimals = VALUES(decimals), updated_at = VALUES(updated_at)`
	if _, err := r.db.ExecContext(ctx, stmt,
		record.Network,
		normalizeAssetID(record.AssetID),
		record.Symbol,
		record.Address.Hex(),
		decimals,
		record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("写入资产地址失败: %w", err)
	}
	return nil
}

// List 返回某网络下的全部资产映射。
func (r *AssetRepository) List(ctx context.Context, network string) ([]AssetRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT network, asset_id, symbol, address, decimals, updated_at
    FROM asset_addresses WHERE network = ? ORDER BY asset_id`, network)
	if err != nil {
		return nil, fmt.Errorf("查询资产列表失败: %w", err)
	}
	defer rows.Close()

	var records []AssetRecord
	for rows.Next() {
		var (
			rec      AssetRecord
			hex      string
			decimals sql.NullInt64
		)
		if err := rows.Scan(&rec.Network, &rec.AssetID, &rec.Symbol, &hex, &decimals, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("解析资产记录失败: %w", err)
		}
		rec.Address = common.HexToAddress(hex)
		if decimals.Valid {
			d := int(decimals.Int64)
			rec.Decimals = &d
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历资产记录失败: %w", err)
	}
	return records, nil
}

// Close 关闭底层连接池。
func (r *AssetRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
