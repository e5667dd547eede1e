/*
Package domain contains the core models of the fieldbot conversation engine.

It defines the per-user Session and its DialogState, the inbound Event, the
dataset Record and Snapshot, the provisioning ChangeRequest and Outcome, and the
Reply rendering contract. This package is kept pure and free of I/O or
persistence concerns.

# Key Entities

  - Session: Per-user dialog state (Idle, Searching, ChangingDevice) plus timestamps.
  - Event: A normalized inbound message (command, menu button, or free text).
  - Snapshot: One immutable capture of the external dataset.
  - Reply: Text lines made of plain, bold and code spans that a router translates to transport markup.
*/
package domain
