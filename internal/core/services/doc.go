// Package services implements the core business logic.
//
// Services implement driving ports and depend only on driven ports and
// domain types, never on concrete adapters. The composition root in
// cmd/finsync wires adapters into services at startup.
//
//   - IngestService: upload pipeline (extract, split, embed, index)
//   - RetrievalService: hybrid fusion over the two indexes
//   - AgentService: the tool-orchestration loop behind chat
//   - SessionMemory: bounded per-session conversation history
//   - DocumentService: document record queries
package services
