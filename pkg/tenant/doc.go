// Package tenant holds the gateway's tenant data model.
//
// It has no behavior of its own beyond pure functions: Instance and
// CloudTenantRecord describe what a tenant looks like in memory and on the
// wire, and Paths/DerivePaths/SanitizeID describe where a tenant's files
// live on disk. The provisioner, svc/tenant and svc/sync packages import
// this one; it imports nothing from them.
package tenant
