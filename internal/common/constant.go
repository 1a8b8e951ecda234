// Package common contains shared constants and sentinel errors used across
// PlayKeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// FriendCodeAlphabet is the fixed alphabet friend codes are drawn from.
const FriendCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultFriendCodeLength is the length of codes minted at registration.
const DefaultFriendCodeLength = 8
