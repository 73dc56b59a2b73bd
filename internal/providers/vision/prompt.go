package vision

// analysisPrompt demands a strict JSON payload. The field names are load
// bearing: the parser rejects any reply missing one of them.
const analysisPrompt = `Analyze this yard/landscape photo and reply with the analysis as JSON in exactly this shape:

{
  "spaceType": "type of space (front yard, backyard, balcony, courtyard, ...)",
  "size": "estimated size of the space",
  "existingFeatures": ["existing landscape elements"],
  "lighting": "description of the lighting conditions",
  "soilType": "likely soil type",
  "climate": "likely climate",
  "challenges": ["design challenges"],
  "opportunities": ["design opportunities"],
  "recommendations": ["initial suggestions"]
}

Consider in detail:
1. Spatial structure and layout
2. Existing plants and hardscape
3. Light and environmental conditions
4. Design potential and constraints
5. Suggested improvements

Respond with the JSON object only, no surrounding prose.`
