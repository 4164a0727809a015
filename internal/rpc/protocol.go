// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package rpc

// ProtocolVersion identifies the wire protocol. Clients call the
// `protocol` method to verify compatibility before issuing real work.
const ProtocolVersion = "0"
