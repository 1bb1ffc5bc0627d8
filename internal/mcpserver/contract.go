package mcpserver

// DocumentFormatContract describes the source document format that LLM
// consumers should follow when writing pages for the generator.
const DocumentFormatContract = `# Sitegen Document Format

Every page is one source file directly inside the source directory
(subdirectories are ignored). The default extension is ` + "`.rst`" + `; the
file name without extension becomes the output name (` + "`about.rst`" + ` →
` + "`about.html`" + `).

## Structure

` + "```" + `
{"title": "About us", "layout": "page.html"}
---
Body text, inserted into the template verbatim.
` + "```" + `

1. Everything before the first line consisting of ` + "`---`" + ` (surrounding
   whitespace allowed) is the **metadata header**: a single JSON object.
2. Everything after that line is the **content**, kept byte for byte.
3. Without a ` + "`---`" + ` line the whole file is the header and the content
   is empty.

## Metadata

- ` + "`layout`" + ` names a template file under the source's ` + "`layout/`" + `
  directory. A page without a resolvable layout is skipped, not fatal.
- Any other key is available to the template as a variable
  (` + "`{{ title }}`" + `). Keys must be identifiers (letters, digits,
  underscore) to be usable.
- ` + "`content`" + ` is reserved: the page body always overrides it.
- A header that is not a JSON object is reported as a warning; the page is
  then rendered with no variables besides ` + "`content`" + `.

## Templates

Templates use Django/Jinja syntax (` + "`{% extends %}`" + `, ` + "`{% block %}`" + `,
` + "`{% for %}`" + `, filters). ` + "`{{ content }}`" + ` is not escaped unless
autoescape is enabled in the configuration.

## Example

` + "```" + `
{"title": "My awesome site", "layout": "home.html"}
---
<p>Welcome.</p>
` + "```" + `

with ` + "`layout/home.html`" + `:

` + "```" + `
<h1>{{ title }}</h1>
{{ content }}
` + "```" + `
`
