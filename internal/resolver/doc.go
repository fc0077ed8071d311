// Package resolver contains the inquiry resolution pipeline: a draft stage
// followed by a quality review stage, each a single request/response call to
// the language-model capability. All surfaces (HTTP, messaging bridge, CLI)
// normalise their input into one inquirer/inquiry pair and dispatch here.
package resolver
