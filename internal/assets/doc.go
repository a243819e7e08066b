// Package assets manages the binary side files of a vault.
//
// Each asset lives in assets/<id> inside the vault folder and is sealed
// independently, under the salt of whichever session created it. The id is
// the only part of the path that comes from data, so ValidateID guards every
// read and write: ids are 1-128 characters of [A-Za-z0-9._-], with no path
// separators and no leading dot.
//
// Store moves bytes only. Encryption happens in the vault session, which
// owns the key.
package assets
