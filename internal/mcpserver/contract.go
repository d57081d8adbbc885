package mcpserver

// PostFormatContract describes the post source format that LLM consumers
// should follow when drafting posts.
const PostFormatContract = `# Quire Post Format Contract

Every post source in the posts directory MUST follow this structure.

## Structure

` + "```" + `markdown
mmd header: {{../templates/header.html}}
mmd footer: {{../templates/footer.html}}
css: /css/main.css
title: Optional title
created: 2025-01-15
updated: 2025-01-20
tags: rust, game

# Human-readable title

First paragraph becomes the intro on the home page.

More Markdown body.
` + "```" + `

## Rules

1. **Header block first.** Every line up to the first blank line is a
   ` + "`" + `key: value` + "`" + ` pair (colon followed by a space). A header line without ": "
   fails the whole build. Unknown keys are ignored; lines starting with a
   space continue the previous value.
2. **Title.** The first ` + "`" + `# ` + "`" + ` heading of the body wins over the
   ` + "`" + `title` + "`" + ` key. Write ` + "`" + `\#` + "`" + ` for a literal ` + "`" + `#` + "`" + ` in a title.
3. **Intro.** The first paragraph after the heading is the card intro.
   Lines wrapped in ` + "`" + `{{...}}` + "`" + ` are processor directives and never part of
   the intro.
4. **File names.** ` + "`" + `YYYY-MM-DD-slug.md` + "`" + ` for published posts, the date
   prefix is the created date when no ` + "`" + `created` + "`" + ` key is given.
   ` + "`" + `draft-slug.md` + "`" + ` marks a draft: drafts are listed in local builds and
   removed from published builds.
5. **Literate sources.** A ` + "`" + `.rs` + "`" + ` post keeps its prose and header in
   ` + "`" + `/* ... */` + "`" + ` (or ` + "`" + `/** ... */` + "`" + `) comments. The comment markers sit on
   their own lines. Code between comments becomes a fenced block; code after
   the last comment is dropped.
6. **Encoding** is UTF-8 with a trailing newline.

## Tools

- ` + "`" + `create_draft` + "`" + ` writes ` + "`" + `draft-<slug>.md` + "`" + ` after checking the header.
- ` + "`" + `build_site` + "`" + ` rebuilds the site and reports rendered posts and failures.
`
