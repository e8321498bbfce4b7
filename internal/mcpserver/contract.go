package mcpserver

// TimestampFormatContract describes which headlines show up in the agenda
// and how agenda lines are rendered.
const TimestampFormatContract = `# Org Agenda Timestamp Format

A headline block appears in the agenda when its text contains a timestamp.

## Timestamp

` + "```" + `
YYYY-MM-DD DDD
YYYY-MM-DD DDD HH:MM
` + "```" + `

- ` + "`" + `DDD` + "`" + ` is a three-character weekday abbreviation (e.g. ` + "`" + `Mon` + "`" + `). A weekday
  that disagrees with the date is reported but the entry is kept.
- Only the first timestamp in a block counts.
- Dates and times must exist on the calendar: ` + "`" + `2023-02-30 Thu` + "`" + ` or ` + "`" + `25:00` + "`" + ` make
  the entry malformed. Malformed entries are skipped unless the server runs with
  ` + "`" + `on_malformed: fail` + "`" + `.
- A repeater such as ` + "`" + `+1w` + "`" + ` after the timestamp is recorded but never expanded.

## Headline blocks

A block starts at a line beginning with one or more ` + "`" + `*` + "`" + ` followed by a space and
runs until the next headline, a blank line or the end of the file.

## Agenda lines

` + "```" + `
Org Mode Agenda

plan.org:1: 2023-06-01 16:00 => Dentist 2023-06-01 Thu 16:00
now => 2023-06-14 08:00--------...
work.org:1: => TODO Call Bob
` + "```" + `

- Entries are sorted by timestamp; equal timestamps keep file order.
- The timestamp column is omitted for entries in the current week (Monday start).
- ` + "`" + `<file>:<line>:` + "`" + ` gives the file base name and 1-based headline line. Use the
  ` + "`" + `resolve_agenda_line` + "`" + ` tool to turn it into a vault path.
`
