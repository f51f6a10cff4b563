// Package compiler folds an ordered block list into a single AsyncAPI
// document. Compilation is a pure left-to-right pass: later blocks overwrite
// what earlier blocks contributed.
package compiler

import "asyncgen/internal/domain"

// Policy decides how a keyed entry is written into a section map such as
// channels or components.messages.
type Policy func(section domain.Document, key string, entry domain.Document) domain.Document

// ReplaceSection discards whatever the section held and returns a map with
// only the new entry. Only the last channel (or message) block survives.
func ReplaceSection(_ domain.Document, key string, entry domain.Document) domain.Document {
	return domain.Document{key: entry}
}

// AccumulateSection adds the entry to the section, keyed by name. A later
// entry with the same key still replaces the earlier one entirely.
func AccumulateSection(section domain.Document, key string, entry domain.Document) domain.Document {
	out := make(domain.Document, len(section)+1)
	for k, v := range section {
		out[k] = v
	}
	out[key] = entry
	return out
}

// Options tunes compilation.
type Options struct {
	// Policy for channel and message sections. Nil means ReplaceSection.
	Policy Policy
}

// Compile builds the document for blocks using the default options.
func Compile(blocks []domain.Block) domain.Document {
	return Options{}.Compile(blocks)
}

// Compile builds the document for blocks. It never fails; field values pass
// through unvalidated.
func (o Options) Compile(blocks []domain.Block) domain.Document {
	policy := o.Policy
	if policy == nil {
		policy = ReplaceSection
	}

	doc := domain.Document{domain.SectionAsyncAPI: domain.AsyncAPIVersion}
	for _, b := range blocks {
		switch b.Type {
		case domain.BlockTypeInfo:
			doc[domain.SectionInfo] = domain.Document{
				"title":   b.Field("title"),
				"version": b.Field("version"),
			}
		case domain.BlockTypeServer:
			doc[domain.SectionServers] = domain.Document{
				domain.DefaultServerKey: domain.Document{
					"url":      b.Field("url"),
					"protocol": b.Field("protocol"),
				},
			}
		case domain.BlockTypeChannel:
			key := keyOr(b.Field("name"), domain.DefaultChannelKey)
			doc[domain.SectionChannels] = policy(doc.Section(domain.SectionChannels), key, domain.Document{
				"description": b.Field("description"),
			})
		case domain.BlockTypeMessage:
			components := doc.Section(domain.SectionComponents)
			if components == nil {
				components = domain.Document{}
				doc[domain.SectionComponents] = components
			}
			key := keyOr(b.Field("name"), domain.DefaultMessageKey)
			components[domain.SectionMessages] = policy(components.Section(domain.SectionMessages), key, domain.Document{
				"payload": b.Field("payload"),
			})
		}
	}
	return doc
}

func keyOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
