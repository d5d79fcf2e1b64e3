// Package common contains shared constants and sentinel errors used across
// FieldKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// curator access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Metadata keys persisted in the client metadata table.
const (
	MetaCuratorID    = "curator_id"
	MetaUsername     = "username"
	MetaAccessToken  = "access_token"
	MetaLastImportAt = "last_import_at"
	MetaLastExportAt = "last_export_at"
)
