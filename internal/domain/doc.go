// Package domain defines users, tasks, tags, attachments and access tokens,
// together with the validation rules and ownership policies that apply to
// them. It has no knowledge of HTTP or SQL.
package domain
