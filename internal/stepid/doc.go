/*
Package stepid provides a structured, type-safe representation for the
identifiers of catalog steps and snapshots.

A step is addressed by the canonical URI `data://<channel>/<namespace>/<version>/<short_name>`,
e.g. `data://garden/energy/2024-06-20/primary_energy`. A snapshot is addressed
by `snapshot://<namespace>/<version>/<filename>`.

This package enforces the identifier schema and centralizes all formatting and
parsing logic, improving maintainability and robustness.
*/
package stepid
