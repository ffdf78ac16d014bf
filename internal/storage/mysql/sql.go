package mysql

// Insert prefix for the multi-row listing upsert; one VALUES tuple per
// listing is appended in the repo. first_seen_date/last_seen_date are set
// by the database so bulk ingestion and single upserts behave identically.
const insertListingsPrefix = `
INSERT INTO raw_listings
  (url, listing_hash, source,
   title, city, state, country, industry, description,
   listed_by_firm, listed_by_name, phone, email,
   price, gross_revenue, cash_flow, inventory, ebitda,
   price_num, gross_revenue_num, cash_flow_num, ebitda_num,
   financial_data, source_link, extra_information, deal_date,
   scraping_date, first_seen_date, last_seen_date)
VALUES `

// Re-scrapes overwrite the mutable fields and refresh last_seen_date;
// first_seen_date and provenance columns keep their original values. The
// numeric columns always travel with their raw text.
const insertListingsOnDup = ` ON DUPLICATE KEY UPDATE
  last_seen_date    = CURRENT_TIMESTAMP,
  title             = VALUES(title),
  description       = VALUES(description),
  price             = VALUES(price),
  gross_revenue     = VALUES(gross_revenue),
  cash_flow         = VALUES(cash_flow),
  inventory         = VALUES(inventory),
  ebitda            = VALUES(ebitda),
  price_num         = VALUES(price_num),
  gross_revenue_num = VALUES(gross_revenue_num),
  cash_flow_num     = VALUES(cash_flow_num),
  ebitda_num        = VALUES(ebitda_num),
  financial_data    = VALUES(financial_data),
  extra_information = VALUES(extra_information),
  scraping_date     = VALUES(scraping_date)
`

const listingColumns = `
  id, url, source, title, city, state, country, industry, description,
  listed_by_firm, listed_by_name, phone, email,
  price, gross_revenue, cash_flow, inventory, ebitda,
  price_num, gross_revenue_num, cash_flow_num, ebitda_num,
  financial_data, source_link, extra_information, deal_date,
  scraping_date, business_entity_id, first_seen_date, last_seen_date`

const selectListingSQL = `SELECT` + listingColumns + ` FROM raw_listings`

const backfillSelectSQL = `
SELECT id, price, gross_revenue, cash_flow, ebitda
FROM raw_listings
ORDER BY id`

const backfillUpdateSQL = `
UPDATE raw_listings
SET price_num = ?, gross_revenue_num = ?, cash_flow_num = ?, ebitda_num = ?
WHERE id = ?`

const dashboardRowsSQL = `
SELECT
  id, title, source, state, country, industry,
  gross_revenue, ebitda, cash_flow,
  gross_revenue_num, ebitda_num, cash_flow_num,
  first_seen_date, last_seen_date
FROM raw_listings
WHERE COALESCE(last_seen_date, first_seen_date) >= DATE_SUB(NOW(), INTERVAL ? DAY)`

const pipelineProbeSQL = `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name = 'pipeline'`

const pipelineColumnsSQL = `
SELECT COUNT(*)
FROM information_schema.columns
WHERE table_schema = DATABASE()
  AND table_name = 'pipeline'
  AND column_name IN ('created_at', 'responded_at', 'offered_at', 'closed_at', 'status')`

const pipelineStatsSQL = `
SELECT
  SUM(responded_at IS NOT NULL AND responded_at <= created_at + INTERVAL 48 HOUR)
    / NULLIF(SUM(responded_at IS NOT NULL), 0) AS response_48h_rate,
  SUM(offered_at IS NOT NULL AND offered_at <= created_at + INTERVAL 5 DAY)
    / NULLIF(SUM(offered_at IS NOT NULL), 0) AS offer_5d_rate,
  SUM(closed_at IS NOT NULL AND closed_at <= created_at + INTERVAL 60 DAY)
    / NULLIF(SUM(closed_at IS NOT NULL), 0) AS close_60d_rate,
  SUM(COALESCE(LOWER(TRIM(status)), '') NOT IN ('closed', 'lost', 'dead')) AS in_pipeline
FROM pipeline
WHERE created_at IS NOT NULL
  AND created_at >= DATE_SUB(NOW(), INTERVAL ? DAY)`

const statsTotalsSQL = `
SELECT
  COUNT(*),
  SUM(first_seen_date > DATE_SUB(NOW(), INTERVAL 7 DAY)),
  COUNT(DISTINCT CASE WHEN industry IS NOT NULL AND industry <> 'N/A' THEN industry END)
FROM raw_listings`

const statsBySourceSQL = `
SELECT source, COUNT(*) AS cnt
FROM raw_listings
GROUP BY source
ORDER BY cnt DESC`

const statsTopIndustriesSQL = `
SELECT industry, COUNT(*) AS cnt
FROM raw_listings
WHERE industry IS NOT NULL AND industry <> 'N/A'
GROUP BY industry
ORDER BY cnt DESC
LIMIT 5`
