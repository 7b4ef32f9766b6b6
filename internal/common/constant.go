// Package common contains shared constants, sentinel errors and byte helpers
// used by both the companion client and the reference gateway.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// UserBlobPrefix prefixes every blob key owned by a user: users/<id>/...
const UserBlobPrefix = "users/"
