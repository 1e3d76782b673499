package db

// DocumentTable holds one row per published index document.
const DocumentTable = "index_document"

// SchemaSQL defines the index document table.
// Record ids are the document paths (e.g. "topics/sean-ellis.json").
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS index_document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS path ON index_document TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON index_document TYPE string;
    DEFINE FIELD IF NOT EXISTS checksum ON index_document TYPE string;
    -- Every document written by one publish run shares its publish_id
    DEFINE FIELD IF NOT EXISTS publish_id ON index_document TYPE string;
    DEFINE FIELD IF NOT EXISTS published ON index_document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS index_document_path ON index_document FIELDS path UNIQUE;
    DEFINE INDEX IF NOT EXISTS index_document_publish ON index_document FIELDS publish_id;
`
