package navigator

const speakerPrompt = `Extract any named speaker/guest from this podcast research query.

QUERY: %[1]s

Your task: Identify if the query mentions a specific person by name whose views are being requested.

Output JSON:
{
  "named_speaker": "Speaker name if explicitly mentioned, or null",
  "is_speaker_specific": true or false
}

Examples:
- "What does Sean Ellis say about PMF?" -> {"named_speaker": "Sean Ellis", "is_speaker_specific": true}
- "What is product-market fit?" -> {"named_speaker": null, "is_speaker_specific": false}
- "Tell me about Rahul's thoughts on growth" -> {"named_speaker": "Rahul", "is_speaker_specific": true}
- "How do top PMs approach roadmapping?" -> {"named_speaker": null, "is_speaker_specific": false}

IMPORTANT: Only set is_speaker_specific to true if a specific person's name is mentioned.`

const themePrompt = `You are navigating a research index to answer a user query about product, growth, and startup topics from a podcast archive.

USER QUERY: %[1]s

AVAILABLE THEMES (these are the ONLY valid theme IDs you can select):
%[2]s

Your task: Select 1-3 themes most likely to contain relevant information for this query.

CRITICAL RULES:
1. ONLY select theme IDs from the AVAILABLE THEMES list above
2. Do NOT invent, guess, or create theme IDs
3. Copy theme IDs exactly as shown (e.g., "product-market-fit" not "pmf" or "PMF")
4. If no available themes match well, select the closest relevant ones

Output JSON:
{
  "selected_themes": ["theme-id-1", "theme-id-2"],
  "reasoning": "Brief explanation of why these themes are relevant to the query"
}

IMPORTANT: Only select themes that are genuinely relevant. If the query is very specific, 1 theme may be sufficient.`

const episodePrompt = `You are selecting podcast episodes to find answers to a user query.

USER QUERY: %[1]s

NAMED SPEAKER (if query asks about a specific person): %[2]s

SELECTED THEMES: %[3]s

EPISODES IN THESE THEMES:
%[4]s

Your task: Select 2-5 episodes most likely to contain valuable insights for this query.

SPEAKER PRIORITY RULES (CRITICAL):
- If NAMED SPEAKER is specified (not "None"), ALWAYS include episodes with that guest FIRST
- If the named speaker matches a guest name, that episode MUST be in your selection
- Only add other episodes after including all matches for the named speaker

Consider:
1. Guest match - if a named speaker is specified, prioritize their episodes
2. Guest expertise - who would know most about this topic?
3. Episode summary - does it mention relevant concepts?
4. Frameworks mentioned - do any directly address the query?
5. Diversity - if no named speaker, include perspectives from different guests

Output JSON:
{
  "selected_episodes": ["episode-id-1", "episode-id-2", "episode-id-3"],
  "speaker_matched": true or false,
  "reasoning": "Brief explanation of why these episodes are most relevant"
}

IMPORTANT: If a named speaker is specified, you MUST include their episode(s) even if other episodes seem more topically relevant.`

const topicPrompt = `You are selecting specific discussion topics from podcast episodes to answer a user query.

USER QUERY: %[1]s

TOPICS FROM SELECTED EPISODES:
%[2]s

Your task: Select 3-8 topics most likely to contain the specific information needed.

Consider:
1. Topic title and summary - does it directly address the query?
2. Timestamp ranges - longer topics often have more depth
3. Speakers involved - guest expertise matters
4. Theme relevance - topics tagged with relevant themes

Output JSON:
{
  "selected_topics": ["topic-id-1", "topic-id-2", "topic-id-3"],
  "reasoning": "Brief explanation of why these topics are most relevant"
}

IMPORTANT: Select topics that will provide specific, actionable insights - not just general mentions of the topic.`

const sufficiencyPrompt = `You are assessing whether enough information has been retrieved to answer a user query.

USER QUERY: %[1]s

RETRIEVED QUOTES AND CONTEXT:
%[2]s

Assess:
1. Can the query be answered with the information above?
2. What aspects of the query (if any) remain unanswered?
3. Would exploring additional themes help?

Output JSON:
{
  "sufficient": true or false,
  "confidence": 0.0 to 1.0,
  "answered_aspects": ["What parts of the query can be answered"],
  "missing_aspects": ["What parts still need information"],
  "suggested_themes": ["Additional themes to explore if not sufficient"]
}

Be conservative - if the quotes provide good coverage with multiple perspectives, mark as sufficient.
Only suggest additional themes if there's a clear gap in the retrieved information.`
