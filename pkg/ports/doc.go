/*
Package ports defines the driven ports (interfaces) of the fieldbot engine.

These interfaces decouple the conversation core from its collaborators, so the
session table, the dataset origin, the provisioning gateway and the audit log can
each be swapped or faked in tests.

# Key Interfaces

  - SessionStore: Holds one Session per user id.
  - DatasetSource: Returns the raw bytes of the external dataset.
  - DatasetProvider: Serves the cached Snapshot to searches.
  - Provisioner: Submits a device change request and classifies the answer.
  - AuditSink: Receives a verbatim record of every provisioning exchange.
*/
package ports
