package llm

const extractEntitiesPrompt = `You are an entity extraction system for a personal journal. List the distinct people, characters, places, organizations, events and concepts mentioned in the entry below.

For each entity return:
- name: the surface form used in the entry
- type: one of "person", "character", "location", "org", "event", "concept"
- confidence: 0.0-1.0, how sure you are this is a distinct named entity

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"name":"Sarah","type":"person","confidence":0.9}]

If there are no entities, respond with an empty array: []

Entry:
%s`

const enrichEntryPrompt = `Analyze the emotional content and themes of this journal entry.

Known entities in the entry: %s

Return:
- emotions: list of {"emotion": lowercase word, "intensity": 0.0-1.0}
- themes: list of {"theme": short lowercase label, "confidence": 0.0-1.0}
- intensity: overall emotional intensity, one of "LOW", "MEDIUM", "HIGH"

Respond ONLY with JSON, no markdown:
{"emotions":[{"emotion":"joy","intensity":0.7}],"themes":[{"theme":"family","confidence":0.8}],"intensity":"MEDIUM"}

Entry:
%s`
