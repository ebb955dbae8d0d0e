package mcpserver

// RulesFormatContract describes rules.json and how tidy applies the rules,
// for LLM consumers that edit rules through the tools.
const RulesFormatContract = `# tidy Rules Format

Rules live in a single JSON file (` + "`" + `rules.json` + "`" + `) holding an ordered array:

` + "```" + `json
[
    {
        "keyword": "fattura",
        "folder": "Documenti/Fatture"
    },
    {
        "keyword": "screenshot",
        "folder": "Immagini/Screenshots"
    }
]
` + "```" + `

## Fields

- **keyword** (string, required): matched against the file name as a
  case-insensitive substring. "Invoice" matches "my_INVOICE_2024.pdf".
- **folder** (string, required): destination folder. A relative folder is
  created under the watched folder; an absolute folder is used as is.
  Relative folders may not climb out of the watched folder with "..".

## How a file is placed

1. Rules are tried top to bottom; the **first** rule whose keyword occurs in
   the name wins. Order therefore matters: put specific keywords first.
2. Without a matching rule the extension decides: known extensions go to a
   category folder (Images, Documents, Audio, Video, Archives, Code; names
   follow the configured language), any other extension goes to
   "<EXT> Files", and names without an extension go to "Other".
3. Directories and hidden files (names starting with ".") are never moved.

## Editing

- Use ` + "`" + `add_rule` + "`" + ` to append, ` + "`" + `update_rule` + "`" + ` to replace a rule by its 0-based index and
  ` + "`" + `remove_rules` + "`" + ` to delete several indices at once (requires ` + "`" + `confirm: true` + "`" + `,
  ask the user first).
- Indices come from ` + "`" + `list_rules` + "`" + ` and shift after a removal; list again before
  the next edit.
- Use ` + "`" + `classify_file` + "`" + ` to check where a name would go before changing rules.
- The file is rewritten whole on every change (UTF-8, 4-space indent). Hand
  edits are picked up while tidy runs; a file that fails to parse is ignored
  until it is fixed.
`
