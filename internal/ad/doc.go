// Package ad defines the classified-ad record and the collaborator interfaces
// shared by the discovery and distribution pipeline.
package ad
