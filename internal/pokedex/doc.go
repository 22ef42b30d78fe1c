// Package pokedex reads Pokémon records from CSV or spreadsheet files and
// turns each row into the sentence that gets narrated and the file name the
// narration is saved under.
package pokedex
