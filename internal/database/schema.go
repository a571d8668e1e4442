package database

// Schema bootstraps every table the service owns. Monetary and share
// columns are TEXT holding exact decimal strings; dates are TEXT in
// YYYY-MM-DD; timestamps are RFC3339 TEXT.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_archived INTEGER NOT NULL DEFAULT 0,
    exclude_from_overview INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS funds (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    isin TEXT NOT NULL DEFAULT '',
    symbol TEXT NOT NULL DEFAULT '',
    currency TEXT NOT NULL,
    exchange TEXT NOT NULL DEFAULT '',
    dividend_type TEXT NOT NULL DEFAULT 'cash'
);

CREATE TABLE IF NOT EXISTS fund_prices (
    id TEXT PRIMARY KEY,
    fund_id TEXT NOT NULL REFERENCES funds(id),
    date TEXT NOT NULL,
    price TEXT NOT NULL,
    UNIQUE(fund_id, date)
);

CREATE INDEX IF NOT EXISTS idx_fund_prices_fund_date ON fund_prices(fund_id, date);

CREATE TABLE IF NOT EXISTS portfolio_funds (
    id TEXT PRIMARY KEY,
    portfolio_id TEXT NOT NULL REFERENCES portfolios(id),
    fund_id TEXT NOT NULL REFERENCES funds(id),
    UNIQUE(portfolio_id, fund_id)
);

CREATE TABLE IF NOT EXISTS ibkr_transactions (
    id TEXT PRIMARY KEY,
    ibkr_transaction_id TEXT UNIQUE NOT NULL,
    date TEXT NOT NULL,
    symbol TEXT NOT NULL DEFAULT '',
    isin TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    shares TEXT NOT NULL,
    price TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    currency TEXT NOT NULL,
    fees TEXT NOT NULL DEFAULT '0',
    status TEXT NOT NULL DEFAULT 'pending',
    imported_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ibkr_transactions_status ON ibkr_transactions(status);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    portfolio_fund_id TEXT NOT NULL REFERENCES portfolio_funds(id),
    date TEXT NOT NULL,
    type TEXT NOT NULL,
    shares TEXT NOT NULL,
    cost_per_share TEXT NOT NULL,
    ibkr_transaction_id TEXT REFERENCES ibkr_transactions(id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_holding_date ON transactions(portfolio_fund_id, date);

CREATE TABLE IF NOT EXISTS realized_gains (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL UNIQUE REFERENCES transactions(id),
    portfolio_id TEXT NOT NULL,
    fund_id TEXT NOT NULL,
    date TEXT NOT NULL,
    shares_sold TEXT NOT NULL,
    cost_basis TEXT NOT NULL,
    sale_proceeds TEXT NOT NULL,
    gain TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dividends (
    id TEXT PRIMARY KEY,
    portfolio_fund_id TEXT NOT NULL REFERENCES portfolio_funds(id),
    record_date TEXT NOT NULL,
    ex_dividend_date TEXT NOT NULL,
    per_share TEXT NOT NULL,
    shares_owned TEXT NOT NULL,
    total TEXT NOT NULL,
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    buy_order_date TEXT,
    reinvestment_shares TEXT,
    reinvestment_price TEXT,
    reinvestment_transaction_id TEXT REFERENCES transactions(id)
);

CREATE INDEX IF NOT EXISTS idx_dividends_holding_record ON dividends(portfolio_fund_id, record_date);

CREATE TABLE IF NOT EXISTS ibkr_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    auto_allocate_enabled INTEGER NOT NULL DEFAULT 0,
    default_allocations TEXT NOT NULL DEFAULT '[]',
    updated_at TEXT NOT NULL
);
`
